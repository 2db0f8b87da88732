// Package types provides core types used across the tripflow engine.
// This package has ZERO dependencies on other tripflow packages to avoid
// circular imports. All other packages should import types from here.
package types
