package payload

import (
	"golang.org/x/xerrors"
	"strings"
)

// Version is an OData protocol version as carried by the OData-Version header.
type Version int

const (
	// VersionUnknown is used when no version header is present.
	VersionUnknown Version = iota
	V4
	V401
)

// Latest version this module can read.
const MaxVersion = V401

var versionStrings = map[Version]string{
	V4:   "4.0",
	V401: "4.01",
}

func (version Version) String() string {
	if text, ok := versionStrings[version]; ok {
		return text
	}
	return "unknown"
}

/*
Parses an OData-Version header value. Surrounding whitespace and a trailing
semicolon are ignored, so all of the following yield V4:

• "4.0"

• " 4.0 "

• "4.0;"
*/
func ParseVersion(incoming string) (Version, error) {
	incoming = strings.TrimSpace(incoming)
	incoming = strings.TrimSpace(strings.TrimSuffix(incoming, ";"))

	switch incoming {
	case "4.0", "4":
		return V4, nil
	case "4.01":
		return V401, nil
	}
	return VersionUnknown, xerrors.Errorf("unsupported OData version %q", incoming)
}

func (version *Version) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var text string
	if err := unmarshal(&text); err != nil {
		return err
	}
	parsed, err := ParseVersion(text)
	if err != nil {
		return err
	}
	*version = parsed
	return nil
}

func (version Version) MarshalYAML() (interface{}, error) {
	return version.String(), nil
}
