// Package installer describes the macOS installer of the Pololu USB AVR
// Programmer v2 software: product identity, the layout of the staging tree
// and the text artifacts rendered into it (Info.plist, PATH entry, welcome
// page, distribution descriptor and the pkgbuild/productbuild script).
//
// Everything here is a pure function of Params, so equal inputs render
// byte-identical files.
package installer
