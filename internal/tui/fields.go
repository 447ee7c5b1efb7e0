package tui

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/1broseidon/evepreview/internal/color"
)

func validUint16(s string) error {
	if _, err := strconv.ParseUint(strings.TrimSpace(s), 10, 16); err != nil {
		return fmt.Errorf("expected a number between 0 and 65535")
	}
	return nil
}

func validPositive(s string) error {
	v, err := strconv.ParseUint(strings.TrimSpace(s), 10, 16)
	if err != nil || v == 0 {
		return fmt.Errorf("expected a number between 1 and 65535")
	}
	return nil
}

func validInt16(s string) error {
	if _, err := strconv.ParseInt(strings.TrimSpace(s), 10, 16); err != nil {
		return fmt.Errorf("expected a number between -32768 and 32767")
	}
	return nil
}

func validPercent(s string) error {
	v, err := strconv.ParseUint(strings.TrimSpace(s), 10, 8)
	if err != nil || v > 100 {
		return fmt.Errorf("expected a percentage between 0 and 100")
	}
	return nil
}

func validColor(s string) error {
	_, err := color.ParseHex(strings.TrimSpace(s))
	return err
}

// validOptionalColor accepts an empty string for "no override".
func validOptionalColor(s string) error {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return validColor(s)
}

// The parse helpers run after validation, so errors keep the old value.

func setUint16(dst *uint16, s string) {
	if v, err := strconv.ParseUint(strings.TrimSpace(s), 10, 16); err == nil {
		*dst = uint16(v)
	}
}

func setInt16(dst *int16, s string) {
	if v, err := strconv.ParseInt(strings.TrimSpace(s), 10, 16); err == nil {
		*dst = int16(v)
	}
}

func setPercent(dst *uint8, s string) {
	if v, err := strconv.ParseUint(strings.TrimSpace(s), 10, 8); err == nil && v <= 100 {
		*dst = uint8(v)
	}
}

func u16(v uint16) string { return strconv.FormatUint(uint64(v), 10) }
func i16(v int16) string  { return strconv.FormatInt(int64(v), 10) }
