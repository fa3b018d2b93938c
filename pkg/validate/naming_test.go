package validate

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCollectionNameValid(t *testing.T) {
	for _, name := range []string{"users", "user-events", "user_events", "a.b.c", ".keys"} {
		require.NoError(t, CollectionName(name), name)
	}
}

func TestCollectionNameInvalid(t *testing.T) {
	cases := []string{
		"", "a/b", "a\\b", "a\x00b", "a<b", ".hidden", "trailing.", "trailing ",
		"CON", "con", "COM1", "lpt9", "weird!name",
	}
	for _, name := range cases {
		require.Error(t, CollectionName(name), name)
	}
}

func TestDocumentIDValid(t *testing.T) {
	for _, id := range []string{"u1", "user-1", "user_1", "ABC123"} {
		require.NoError(t, DocumentID(id), id)
	}
}

func TestDocumentIDInvalid(t *testing.T) {
	cases := []string{"", "a.json", ".leading", "a/b", "trailing ", "CON"}
	for _, id := range cases {
		require.Error(t, DocumentID(id), id)
	}
}
