package puzzle

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
)

// Puzzle solutions bind a nonce to an identity and a public context string.
// The digest is H(nonce || identity || context) and a solution is accepted
// iff its hex form carries at least `difficulty` leading zeros. Verification
// is pure and never fails with an error: an unverifiable solution is simply
// not a solution.

const maxDifficulty = 64

func digest(identity, publicContext, nonce string) string {
	data := fmt.Sprintf("%s||%s||%s", nonce, identity, publicContext)
	sum := sha256.Sum256([]byte(data))

	return hex.EncodeToString(sum[:])
}

// Solve searches nonces sequentially until one meets the difficulty target.
// The search is unbounded, so it honors ctx cancellation to keep the caller
// responsive while it runs.
func Solve(ctx context.Context, identity, publicContext string, difficulty uint) (string, error) {
	if difficulty > maxDifficulty {
		difficulty = maxDifficulty
	}
	target := strings.Repeat("0", int(difficulty))

	for nonce := uint64(0); ; nonce++ {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		default:
		}

		candidate := strconv.FormatUint(nonce, 10)
		if strings.HasPrefix(digest(identity, publicContext, candidate), target) {
			return candidate, nil
		}
	}
}

// Verify recomputes the digest for the claimed solution. It reports false
// for any tampered nonce, identity or context.
func Verify(identity, publicContext, nonce string, difficulty uint) bool {
	if nonce == "" {
		return false
	}
	if difficulty > maxDifficulty {
		difficulty = maxDifficulty
	}

	return strings.HasPrefix(digest(identity, publicContext, nonce), strings.Repeat("0", int(difficulty)))
}
