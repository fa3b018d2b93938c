// Package validate implements Sentinel's filesystem-safe naming rules for
// collection names and document ids.
package validate

import (
	"strings"
	"unicode"

	"github.com/sentineldb/sentinel/pkg/sentinelerr"
)

// KeysCollectionName is the single reserved collection name (the passphrase
// key-unwrap store) permitted to start with a dot.
const KeysCollectionName = ".keys"

var windowsReservedChars = `<>:"|?*`

var windowsReservedNames = map[string]bool{
	"CON": true, "PRN": true, "AUX": true, "NUL": true,
	"COM1": true, "COM2": true, "COM3": true, "COM4": true, "COM5": true,
	"COM6": true, "COM7": true, "COM8": true, "COM9": true,
	"LPT1": true, "LPT2": true, "LPT3": true, "LPT4": true, "LPT5": true,
	"LPT6": true, "LPT7": true, "LPT8": true, "LPT9": true,
}

// CollectionName validates a collection name per spec.md §4.C10.
func CollectionName(name string) error {
	if name == KeysCollectionName {
		return nil
	}
	if err := baseNameRules(name, true); err != nil {
		return sentinelerr.Wrap(sentinelerr.KindInvalidCollectionName, "validate.CollectionName", err)
	}
	return nil
}

// DocumentID validates a document id per spec.md §4.C10: same rules as a
// collection name, except dots are disallowed anywhere (they would
// collide with the ".json" suffix) and there is no reserved exception.
func DocumentID(id string) error {
	if err := baseNameRules(id, false); err != nil {
		return sentinelerr.Wrap(sentinelerr.KindInvalidDocumentID, "validate.DocumentID", err)
	}
	return nil
}

// baseNameRules implements the shared checks: non-empty; no path
// separators; no control characters; no Windows-reserved characters or
// names; doesn't start with '.' (the reserved .keys name is accepted by
// CollectionName before these checks run); doesn't end with '.' or space;
// only [A-Za-z0-9_-], plus '.' when allowDots.
func baseNameRules(name string, allowDots bool) error {
	if name == "" {
		return sentinelerr.New(sentinelerr.KindInvalidCollectionName, "validate.baseNameRules")
	}
	if strings.ContainsAny(name, `/\`) {
		return sentinelerr.New(sentinelerr.KindInvalidCollectionName, "validate.baseNameRules")
	}
	for _, r := range name {
		if unicode.IsControl(r) {
			return sentinelerr.New(sentinelerr.KindInvalidCollectionName, "validate.baseNameRules")
		}
	}
	if strings.ContainsAny(name, windowsReservedChars) {
		return sentinelerr.New(sentinelerr.KindInvalidCollectionName, "validate.baseNameRules")
	}
	upper := strings.ToUpper(name)
	if base, _, found := strings.Cut(upper, "."); found {
		if windowsReservedNames[base] {
			return sentinelerr.New(sentinelerr.KindInvalidCollectionName, "validate.baseNameRules")
		}
	} else if windowsReservedNames[upper] {
		return sentinelerr.New(sentinelerr.KindInvalidCollectionName, "validate.baseNameRules")
	}
	if strings.HasPrefix(name, ".") {
		return sentinelerr.New(sentinelerr.KindInvalidCollectionName, "validate.baseNameRules")
	}
	if strings.HasSuffix(name, ".") || strings.HasSuffix(name, " ") {
		return sentinelerr.New(sentinelerr.KindInvalidCollectionName, "validate.baseNameRules")
	}
	for _, r := range name {
		switch {
		case r >= 'A' && r <= 'Z', r >= 'a' && r <= 'z', r >= '0' && r <= '9':
		case r == '_' || r == '-':
		case r == '.' && allowDots:
		default:
			return sentinelerr.New(sentinelerr.KindInvalidCollectionName, "validate.baseNameRules")
		}
	}
	return nil
}
