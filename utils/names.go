package utils

import (
	"errors"
	"fmt"
	"strings"

	"k8s.io/apimachinery/pkg/util/validation"
)

// ErrInvalidProviderName indicates a provider identifier did not pass
// validation.
type ErrInvalidProviderName error

// ErrInvalidVersionName indicates a game version string did not pass
// validation.
type ErrInvalidVersionName error

// ValidateProviderName validates that name is safe to use as a path
// segment under jars/<provider>/... and cache/mappings/<provider>/...,
// generalized from names.go's ValidateFunctionName (itself a DNS-1035
// label check) to this domain's provider identifiers: lower case
// alphanumeric characters or '-', starting with a letter and ending
// with an alphanumeric character (e.g. 'mojang', 'fabric-intermediary').
func ValidateProviderName(name string) error {
	if errs := validation.IsDNS1035Label(name); len(errs) > 0 {
		return ErrInvalidProviderName(errors.New(strings.Replace(strings.Join(errs, ""), "a DNS-1035 label", fmt.Sprintf("provider name '%v'", name), 1)))
	}
	return nil
}

// ValidateVersionName validates that version is safe to use as a path
// segment under jars/<provider>/<version>/... . Game versions such as
// "1.20.4" or "24w10a" are not DNS labels, so this only rejects the
// characters that would escape a single path segment (path
// separators, ".." traversal, and the empty string) rather than
// reusing the stricter Kubernetes label grammar.
func ValidateVersionName(version string) error {
	const op = "utils.ValidateVersionName"
	if version == "" {
		return ErrInvalidVersionName(fmt.Errorf("%s: version must not be empty", op))
	}
	if version == "." || version == ".." {
		return ErrInvalidVersionName(fmt.Errorf("%s: version %q is not a valid path segment", op, version))
	}
	if strings.ContainsAny(version, "/\\") {
		return ErrInvalidVersionName(fmt.Errorf("%s: version %q must not contain path separators", op, version))
	}
	return nil
}
