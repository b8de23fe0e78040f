/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package script manages the per-page script text: one free-text section per
// panel. Section N always refers to the Nth panel in current z-order among
// Panel shapes; sections are not tracked across panel reordering.
package script

import (
	"bufio"
	"fmt"
	"regexp"
	"strings"
)

// Resection adjusts a section list to the new panel count: previously
// authored text is preserved for ordinals that still exist, sections past the
// new count are discarded, and freshly added panels get empty sections.
func Resection(sections []string, newCount int) []string {
	if newCount < 0 {
		newCount = 0
	}
	out := make([]string, newCount)
	for i := 0; i < newCount && i < len(sections); i++ {
		out[i] = sections[i]
	}
	return out
}

var reHeading = regexp.MustCompile(`^(?i)\s*Panel\s+(\d+)\s*:?\s*$`)

// Parse splits a free-form script text into sections on "Panel N" headings.
// Text before the first heading belongs to section 1. Heading numbers are
// positional only; gaps or repeats are flattened to encounter order.
func Parse(input string) []string {
	var sections []string
	var cur []string
	started := false

	flush := func() {
		if started {
			sections = append(sections, strings.TrimSpace(strings.Join(cur, "\n")))
		}
		cur = cur[:0]
	}

	scanner := bufio.NewScanner(strings.NewReader(input))
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r\n")
		if reHeading.MatchString(line) {
			flush()
			started = true
			continue
		}
		if !started && strings.TrimSpace(line) == "" {
			continue
		}
		started = true
		cur = append(cur, line)
	}
	flush()
	return sections
}

// Format renders sections back to the canonical text form with one
// "Panel N:" heading per section.
func Format(sections []string) string {
	var b strings.Builder
	for i, s := range sections {
		if i > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "Panel %d:\n", i+1)
		b.WriteString(strings.TrimSpace(s))
		b.WriteString("\n")
	}
	return b.String()
}
