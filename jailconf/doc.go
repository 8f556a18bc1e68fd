// Package jailconf parses jail definition files into sandbox parameter sets.
//
// The format is line oriented. Blank lines and lines starting with '#' are
// skipped. The first remaining line names the jail: everything before its
// first space becomes the "name" parameter and the rest of the line is
// ignored. Every later line is either "key = value", optionally ending in
// ';', or a bare key that sets a flag:
//
//	# build jail
//	myjail {
//	path = /usr/local/jails/myjail;
//	host.hostname = myjail;
//	children.max = 10;
//	persist
//	}
//
// The last parsed entry is always dropped, which consumes the closing brace
// of the block above. Files that do not end in a terminator line lose their
// final parameter.
package jailconf
