package main

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/memeshare/achievement-engine/pkg/common"
	"github.com/memeshare/achievement-engine/pkg/domain"
	"github.com/memeshare/achievement-engine/pkg/eligibility"
)

// response is the JSON envelope for --format json.
type response struct {
	Status string `json:"status"`
	Data   any    `json:"data"`
}

func writeJSON(w io.Writer, data any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(response{Status: "ok", Data: data})
}

func writeRules(w io.Writer, rules []*domain.AchievementRule) error {
	var b strings.Builder
	for i, r := range rules {
		if i > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "%s (%s)\n", r.ID, r.DisplayName)
		fmt.Fprintf(&b, "  mode:      %s\n", r.AggregationMode)
		fmt.Fprintf(&b, "  source:    %s\n", describeSource(r.ActivitySource))
		fmt.Fprintf(&b, "  threshold: %d\n", r.Threshold)
		if len(r.Triggers) > 0 {
			fmt.Fprintf(&b, "  triggers:  %s\n", strings.Join(r.Triggers, ", "))
		}
	}
	_, err := io.WriteString(w, b.String())
	return err
}

// describeSource renders a source as collection[.attribute] [k=v ...] with sorted filter keys.
func describeSource(s domain.ActivitySource) string {
	out := s.Collection
	if s.Attribute != "" {
		out += "." + s.Attribute
	}
	if len(s.Filter) == 0 {
		return out
	}

	keys := make([]string, 0, len(s.Filter))
	for k := range s.Filter {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(keys))
	for _, k := range keys {
		pairs = append(pairs, fmt.Sprintf("%s=%v", k, s.Filter[k]))
	}
	return out + " [" + strings.Join(pairs, " ") + "]"
}

func writeOutcome(w io.Writer, userID, achievementID string, o *domain.AwardOutcome) error {
	var b strings.Builder
	fmt.Fprintf(&b, "user:        %s\n", userID)
	fmt.Fprintf(&b, "achievement: %s\n", achievementID)
	fmt.Fprintf(&b, "result:      %s\n", o.Result)
	if o.Record != nil {
		fmt.Fprintf(&b, "awarded:     %s\n", common.FormatISO8601(o.Record.AwardedAt))
	}
	if o.CounterStale {
		b.WriteString("warning:     holders counter not incremented\n")
	}
	_, err := io.WriteString(w, b.String())
	return err
}

func writeDecision(w io.Writer, userID, achievementID string, d eligibility.Decision) error {
	_, err := fmt.Fprintf(w, "user:        %s\nachievement: %s\naggregate:   %d\nthreshold:   %d\neligible:    %t\n",
		userID, achievementID, d.Aggregate, d.Threshold, d.Eligible)
	return err
}

func writeAwards(w io.Writer, views []*domain.AwardView) error {
	if len(views) == 0 {
		_, err := io.WriteString(w, "no awards\n")
		return err
	}

	var b strings.Builder
	for i, v := range views {
		if i > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "%s (%s)\n", v.AchievementID, v.DisplayName)
		fmt.Fprintf(&b, "  awarded: %s\n", common.FormatISO8601(v.AwardedAt))
		fmt.Fprintf(&b, "  holders: %d\n", v.Holders)
	}
	_, err := io.WriteString(w, b.String())
	return err
}
