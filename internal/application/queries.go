package application

import (
	"sort"
	"strings"

	"github.com/bnema/ppl-accounts-cli/internal/domain"
)

type AccountSummary struct {
	Account domain.Account
	Active  bool
	// Cached is false only for an active identity that was never added.
	Cached bool
}

func sortAccounts(accounts []domain.Account) {
	sort.SliceStable(accounts, func(i, j int) bool {
		left, right := accounts[i], accounts[j]
		if !left.LastUsedAt.Equal(right.LastUsedAt) {
			return left.LastUsedAt.After(right.LastUsedAt)
		}
		return strings.ToLower(left.User.Email) < strings.ToLower(right.User.Email)
	})
}
