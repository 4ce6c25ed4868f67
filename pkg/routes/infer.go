package routes

import (
	"strings"
	"unicode"

	"github.com/jinzhu/inflection"
)

// actionSynonyms maps route actions onto permission actions. Actions not
// listed pass through in kebab-case.
var actionSynonyms = map[string]string{
	"index":   "view",
	"show":    "view",
	"create":  "create",
	"store":   "create",
	"edit":    "edit",
	"update":  "edit",
	"destroy": "delete",

	"bulkDestroy":  "delete",
	"bulk-destroy": "delete",
	"bulkUpdate":   "edit",
	"bulk-update":  "edit",

	"export":   "export",
	"import":   "import",
	"download": "export",

	"activate":   "edit",
	"deactivate": "edit",
	"toggle":     "edit",
	"restore":    "restore",

	"reorder": "edit",
	"sort":    "edit",
	"move":    "edit",

	"sync":             "edit",
	"sync-permissions": "edit",
	"syncPermissions":  "edit",

	"scan":  "create",
	"clear": "delete",
}

// InferPermissionName suggests the permission guarding a route:
// "admin.users.index" becomes "user.view". Single-segment names are
// returned unchanged.
func InferPermissionName(routeName string) string {
	parts := strings.Split(routeName, ".")
	if len(parts) == 1 {
		return routeName
	}

	action := parts[len(parts)-1]
	resource := parts[len(parts)-2]
	return Singular(resource) + "." + MapAction(action)
}

// MapAction returns the permission action for a route action
func MapAction(action string) string {
	if mapped, ok := actionSynonyms[action]; ok {
		return mapped
	}
	return Kebab(action)
}

// Singular singularizes a resource segment, including hyphenated ones
func Singular(resource string) string {
	return inflection.Singular(resource)
}

// Kebab converts camelCase into kebab-case: "forceDelete" becomes
// "force-delete". Every upper-case letter after the first character starts a
// new word, so runs of capitals split per letter: "exportCSV" becomes
// "export-c-s-v". Whitespace separated words are joined the same way.
func Kebab(s string) string {
	if isLowerLetters(s) {
		return s
	}

	var joined []rune
	for _, word := range strings.Fields(s) {
		runes := []rune(word)
		runes[0] = unicode.ToUpper(runes[0])
		joined = append(joined, runes...)
	}

	var b strings.Builder
	for i, r := range joined {
		if i > 0 && unicode.IsUpper(r) {
			b.WriteByte('-')
		}
		b.WriteRune(unicode.ToLower(r))
	}
	return b.String()
}

func isLowerLetters(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if !unicode.IsLower(r) {
			return false
		}
	}
	return true
}
