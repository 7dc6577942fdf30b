// Copyright 2023-2026 The FewShot Launcher Authors. SPDX-License-Identifier: Apache-2.0

package weights

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/fewshot/launcher/pkg/families"
	"golang.org/x/text/cases"
)

// TimestampLayout is the layout of the time embedded in save file names: local time, one second granularity.
const TimestampLayout = "20060102-150405"

// DefaultExtension of the weight files written by trained models.
const DefaultExtension = ".pth"

var (
	waysRegexp  = regexp.MustCompile(`ways(\d+)`)
	shotsRegexp = regexp.MustCompile(`shots(\d+)`)
)

// NewSaveName returns the file name under which a freshly trained model is saved:
//
//	{family}_ways{ways}_shots{shots}_{YYYYMMDD-HHMMSS}{ext}
//
// This is the only metadata contract between training and later discovery, see ParseName.
func NewSaveName(family families.Family, ways, shots int, now time.Time, ext string) string {
	return fmt.Sprintf("%s_ways%d_shots%d_%s%s", family.Name, ways, shots, now.Format(TimestampLayout), ext)
}

// ParseName recovers the ways and shots encoded in a weight file name: the first integer following
// the token "ways" and the first integer following "shots".
// A missing token yields 0 for that value.
func ParseName(filename string) (ways, shots int) {
	return firstInt(waysRegexp, filename), firstInt(shotsRegexp, filename)
}

func firstInt(re *regexp.Regexp, s string) int {
	matches := re.FindStringSubmatch(s)
	if len(matches) != 2 {
		return 0
	}
	v, err := strconv.Atoi(matches[1])
	if err != nil {
		// Only on overflow.
		return 0
	}
	return v
}

// MatchesFamily returns whether filename starts with the family name, ignoring case.
func MatchesFamily(family families.Family, filename string) bool {
	fold := cases.Fold()
	return strings.HasPrefix(fold.String(filename), fold.String(family.Name))
}
