package assistant

import (
	"context"
	"fmt"
	"strings"

	"github.com/ibd-library/library-service/library/internal/model"
)

var (
	hoursKeywords     = []string{"hour", "open", "close", "when", "운영", "시간", "언제"}
	policyKeywords    = []string{"loan", "borrow", "return", "renew", "extend", "대출", "빌리", "반납"}
	recommendKeywords = []string{"recommend", "suggest", "book", "read", "추천", "책"}
)

const recommendCount = 3

// Fallback answers from fixed rules: opening hours, loan policy, a few in-stock titles, else a greeting.
type Fallback struct {
	lib Library
}

func NewFallback(lib Library) *Fallback {
	return &Fallback{lib: lib}
}

func containsAny(s string, words []string) bool {
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}

func (f *Fallback) Respond(ctx context.Context, p Prompt) (Reply, error) {
	msg := strings.ToLower(p.Message)

	if containsAny(msg, hoursKeywords) {
		return Reply{
			Text:    fmt.Sprintf("Library opening hours\n\n- %s\n- %s", OperatingHours, ClosedDays),
			Sources: []string{"config"},
		}, nil
	}

	if containsAny(msg, policyKeywords) {
		policy, err := f.lib.ListPolicy(ctx)
		if err != nil {
			return Reply{}, err
		}
		values := make(map[string]string, len(policy))
		for _, c := range policy {
			values[c.Key] = c.Value
		}
		return Reply{
			Text: fmt.Sprintf("Loan policy\n\n- Loan period: %s days\n- Up to %s books at a time\n- Extensions: %s per loan, %s days each",
				values[model.ConfigLoanPeriodDays], values[model.ConfigMaxLoanLimit],
				values[model.ConfigMaxExtensionCount], values[model.ConfigExtensionPeriodDays]),
			Sources: []string{"config"},
		}, nil
	}

	if containsAny(msg, recommendKeywords) {
		available := true
		items, err := f.lib.ListItems(ctx, model.ItemFilter{Available: &available, Limit: recommendCount})
		if err != nil {
			return Reply{}, err
		}
		if len(items) > 0 {
			lines := make([]string, len(items))
			for i, it := range items {
				lines[i] = fmt.Sprintf("- %s by %s", it.Title, it.Author)
			}
			return Reply{
				Text:    "Recommended books\n\n" + strings.Join(lines, "\n") + "\n\nSee the catalog for more.",
				Sources: []string{"books"},
			}, nil
		}
	}

	return Reply{
		Text: "Hello! I am the library assistant.\n\nI can help with:\n- opening hours\n- borrowing and returning\n- book recommendations",
	}, nil
}
