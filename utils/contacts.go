package utils

import (
	"cmp"
	"fmt"
	"html"
	"strconv"
	"strings"

	"relaybridge/database"

	"github.com/lithammer/fuzzysearch/fuzzy"
	"golang.org/x/exp/slices"
)

// FuzzyFindContacts matches query against contact names and usernames.
// Results are ordered by user id.
func FuzzyFindContacts(contacts map[int64]database.Contact, query string) []database.Contact {
	var searchSpace []string
	for id, contact := range contacts {
		prefix := strconv.FormatInt(id, 10) + "||"
		if name := contact.FullName(); name != "" {
			searchSpace = append(searchSpace, prefix+strings.ToLower(name))
		}
		if contact.Username != "" {
			searchSpace = append(searchSpace, prefix+strings.ToLower(contact.Username))
		}
	}

	var (
		seen    = make(map[int64]bool)
		results []database.Contact
	)
	for _, res := range fuzzy.Find(strings.ToLower(query), searchSpace) {
		info := strings.SplitN(res, "||", 2)
		id, err := strconv.ParseInt(info[0], 10, 64)
		if err != nil || seen[id] {
			continue
		}
		seen[id] = true
		results = append(results, contacts[id])
	}

	slices.SortFunc(results, func(a, b database.Contact) int {
		return cmp.Compare(a.UserId, b.UserId)
	})
	return results
}

// ContactLabel renders a contact for display in an HTML message.
func ContactLabel(contact database.Contact) string {
	name := contact.FullName()
	if contact.Username != "" {
		if name != "" {
			name += " "
		}
		name += "@" + contact.Username
	}
	if name == "" {
		name = "User"
	}
	return fmt.Sprintf("<i>%s</i> [ <code>%d</code> ]", html.EscapeString(name), contact.UserId)
}
