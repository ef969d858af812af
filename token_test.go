package netpoll

import "testing"

func TestTokenIsPlainUint64(t *testing.T) {
	tok := Token(42)
	if uint64(tok) != 42 {
		t.Fatalf("Token(42) round-tripped as %d", uint64(tok))
	}
}

func TestTokenZeroValueUsable(t *testing.T) {
	var tok Token
	if tok != Token(0) {
		t.Fatalf("zero value Token is not 0: %d", tok)
	}
}
