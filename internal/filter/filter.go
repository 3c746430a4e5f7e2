// Package filter decides which containers are monitored.
//
// Decisions are pure regex matching over container name and image. Exclude
// patterns always win; empty include lists mean no restriction. Patterns
// are matched unanchored and case-sensitive, so "web" matches "prod-web-1"
// and anchoring is opt-in via ^ and $ inside the pattern.
package filter

import (
	"fmt"
	"regexp"

	"dockmon"
)

// Spec is the raw filter configuration: four ordered pattern lists.
type Spec struct {
	IncludeNames  []string
	ExcludeNames  []string
	IncludeImages []string
	ExcludeImages []string
}

// Filter is a compiled Spec. Safe for concurrent use.
type Filter struct {
	includeNames  []*regexp.Regexp
	excludeNames  []*regexp.Regexp
	includeImages []*regexp.Regexp
	excludeImages []*regexp.Regexp
}

// Compile validates and compiles every pattern in spec. A single invalid
// pattern fails the whole compile; this runs at startup so bad
// configuration is rejected before any cycle.
func Compile(spec Spec) (*Filter, error) {
	f := &Filter{}
	var err error
	if f.includeNames, err = compileAll("include_container_names", spec.IncludeNames); err != nil {
		return nil, err
	}
	if f.excludeNames, err = compileAll("exclude_container_names", spec.ExcludeNames); err != nil {
		return nil, err
	}
	if f.includeImages, err = compileAll("include_image_names", spec.IncludeImages); err != nil {
		return nil, err
	}
	if f.excludeImages, err = compileAll("exclude_image_names", spec.ExcludeImages); err != nil {
		return nil, err
	}
	return f, nil
}

func compileAll(list string, patterns []string) ([]*regexp.Regexp, error) {
	if len(patterns) == 0 {
		return nil, nil
	}
	compiled := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("%s pattern %q: %w", list, p, err)
		}
		compiled = append(compiled, re)
	}
	return compiled, nil
}

// Decide reports whether the container should be monitored.
//
// Order: name excludes, image excludes, then name includes and image
// includes as independent requirements. A container excluded by name
// cannot be rescued by an image include, and vice versa.
func (f *Filter) Decide(id dockmon.ContainerIdentity) bool {
	if matchAny(f.excludeNames, id.ContainerName) {
		return false
	}
	if matchAny(f.excludeImages, id.ImageName) {
		return false
	}
	if len(f.includeNames) > 0 && !matchAny(f.includeNames, id.ContainerName) {
		return false
	}
	if len(f.includeImages) > 0 && !matchAny(f.includeImages, id.ImageName) {
		return false
	}
	return true
}

func matchAny(res []*regexp.Regexp, s string) bool {
	for _, re := range res {
		if re.MatchString(s) {
			return true
		}
	}
	return false
}
