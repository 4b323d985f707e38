package model

import "sort"

// LinkageEntry records, for one dependency of a package, the storage id and
// version that package expects that dependency to be loaded at.
type LinkageEntry struct {
	StorageID PackageID
	Version   uint64
}

// Package is an immutable code container. OriginalID is the address the
// package was first published at; StorageID is where this particular
// version's bytecode lives on-chain. At VM load time modules are installed
// under OriginalID so internal self-calls and type references resolve —
// see linkage.Closure and moveengine for the enforcement of this invariant.
type Package struct {
	OriginalID PackageID
	StorageID  PackageID
	Version    uint64

	// Modules maps a module name to its raw bytecode.
	Modules map[string][]byte

	// Linkage maps a dependency's original id to the storage id/version this
	// package version was compiled against.
	Linkage map[PackageID]LinkageEntry

	// TypeOriginTable maps "module::type" to the original package id that
	// first defined it, used by upgraded packages whose types were declared
	// in an earlier version.
	TypeOriginTable map[string]PackageID
}

// ModuleNames returns the sorted module names, used by analyze.ListModules.
func (p *Package) ModuleNames() []string {
	names := make([]string, 0, len(p.Modules))
	for n := range p.Modules {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
