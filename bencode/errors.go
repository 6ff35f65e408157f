package bencode

import "errors"

// ErrMalformedBencoding is wrapped by every decode failure: unterminated
// containers, bad length prefixes, leading-zero integers, non-string
// dict keys, or trailing bytes after the top-level value.
var ErrMalformedBencoding = errors.New("malformed bencoding")

// ErrNoDict is returned by Get when the supplied bytes are not a
// top-level bencoded dictionary.
var ErrNoDict = errors.New("bencode: data is not a dictionary")
