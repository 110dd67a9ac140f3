// Package idref provides URI-shaped item identifiers and a glob-based
// selector syntax over them. The scheduler core never imports this
// package — identifiers are opaque to it — and no other package in this
// module imports it; host code can use idref.ID as a comparable key type.
package idref

import (
	"errors"
	"fmt"
	"strings"
)

// ErrFormat is returned by Parse when the input does not have exactly six
// colon-separated components.
var ErrFormat = errors.New("idref: identifier must have six colon-separated components")

// ErrInvalidPath is returned when an identifier's location is not a clean
// relative forward-slash path: absolute paths, backslashes, and parent
// traversal are all rejected.
var ErrInvalidPath = errors.New("idref: location must be a relative forward-slash path")

// ID is a six-component identifier of the shape
//
//	provider:resource:variant:context:location:fragment
//
// Components may be empty. Location, when present, is a relative path with
// forward-slash separators. ID is comparable, so it can serve directly as
// an item identifier or a map key.
type ID struct {
	Provider string
	Resource string
	Variant  string
	Context  string
	Location string
	Fragment string
}

// Parse parses s into an ID, validating the location component.
func Parse(s string) (ID, error) {
	parts := strings.Split(s, ":")
	if len(parts) != 6 {
		return ID{}, fmt.Errorf("%w: %q", ErrFormat, s)
	}
	id := ID{
		Provider: parts[0],
		Resource: parts[1],
		Variant:  parts[2],
		Context:  parts[3],
		Location: parts[4],
		Fragment: parts[5],
	}
	if err := validateLocation(id.Location); err != nil {
		return ID{}, err
	}
	return id, nil
}

// MustParse parses s, panicking on error. For tests and package-level
// constants.
func MustParse(s string) ID {
	id, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return id
}

// String renders the identifier back to its six-component form. It is the
// inverse of Parse for any ID Parse accepts.
func (id ID) String() string {
	return strings.Join([]string{id.Provider, id.Resource, id.Variant, id.Context, id.Location, id.Fragment}, ":")
}

func validateLocation(location string) error {
	if location == "" {
		return nil
	}
	if strings.ContainsRune(location, '\\') {
		return fmt.Errorf("%w: backslash in %q", ErrInvalidPath, location)
	}
	if strings.HasPrefix(location, "/") {
		return fmt.Errorf("%w: absolute path %q", ErrInvalidPath, location)
	}
	for _, segment := range strings.Split(location, "/") {
		if segment == ".." {
			return fmt.Errorf("%w: parent traversal in %q", ErrInvalidPath, location)
		}
	}
	return nil
}
