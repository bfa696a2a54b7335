package clientdist

import _ "embed"

// MatchMediaJS is the thin client JavaScript.
//
// It is served by the framework at "/_matchmedia/client.js".
//
//go:embed matchmedia.js
var MatchMediaJS []byte
