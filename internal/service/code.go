package service

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"

	"github.com/rocketscienceinc/tictactoe-sync/internal/apperror"
)

const (
	// CodeAlphabet - upper case letters and digits without 0, 1, I and O.
	CodeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
	CodeLength   = 6
)

func generateCode() (string, error) {
	limit := big.NewInt(int64(len(CodeAlphabet)))

	code := make([]byte, CodeLength)
	for i := range code {
		n, err := rand.Int(rand.Reader, limit)
		if err != nil {
			return "", fmt.Errorf("failed to read random: %w", err)
		}
		code[i] = CodeAlphabet[n.Int64()]
	}

	return string(code), nil
}

// NormalizeCode - upper-cases user input and checks it against the code format.
func NormalizeCode(code string) (string, error) {
	code = strings.ToUpper(strings.TrimSpace(code))

	if len(code) != CodeLength {
		return "", fmt.Errorf("%w: %q", apperror.ErrInvalidCode, code)
	}

	for _, symbol := range code {
		if !strings.ContainsRune(CodeAlphabet, symbol) {
			return "", fmt.Errorf("%w: %q", apperror.ErrInvalidCode, code)
		}
	}

	return code, nil
}
