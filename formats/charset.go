package formats

import (
	"github.com/illuscio-dev/odatareader-go/odataerrors"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/encoding/unicode"
	"strings"
)

// ResolveCharset maps a charset label to its encoding and canonical name. An empty
// label means UTF-8.
func ResolveCharset(label string) (encoding.Encoding, string, error) {
	label = strings.TrimSpace(strings.Trim(label, `"`))
	if label == "" {
		return unicode.UTF8, "utf-8", nil
	}

	found, err := htmlindex.Get(label)
	if err != nil {
		return nil, "", odataerrors.CharsetUnsupported.Wrap(
			err, odataerrors.MsgCharsetUnsupported, label,
		)
	}
	name, err := htmlindex.Name(found)
	if err != nil {
		name = strings.ToLower(label)
	}
	return found, name, nil
}
