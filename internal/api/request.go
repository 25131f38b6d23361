package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
)

var (
	validate = validator.New()

	// Length and charset guard only; unknown symbols surface at fetch time.
	symbolPattern = regexp.MustCompile(`^[A-Z0-9^&=._-]{1,32}$`)
)

func init() {
	_ = validate.RegisterValidation("symbol", func(fl validator.FieldLevel) bool {
		s, ok := fl.Field().Interface().(string)
		return ok && symbolPattern.MatchString(s)
	})
}

type watchlistRequest struct {
	Symbol string `json:"symbol" validate:"required,symbol"`
}

// normalizeSymbol upper-cases and trims a user-supplied symbol.
func normalizeSymbol(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}

// checkSymbol validates an already normalized symbol.
func checkSymbol(s string) error {
	if err := validate.Var(s, "required,symbol"); err != nil {
		return fmt.Errorf("invalid symbol %q", s)
	}
	return nil
}

var errBodyTooLarge = errors.New("request body too large")

func decodeWatchlistRequest(body io.Reader) (watchlistRequest, error) {
	var req watchlistRequest
	dec := json.NewDecoder(body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		var mbe *http.MaxBytesError
		if errors.As(err, &mbe) {
			return req, errBodyTooLarge
		}
		return req, errors.New("invalid JSON body")
	}
	req.Symbol = normalizeSymbol(req.Symbol)
	if err := validate.Struct(req); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 && verrs[0].Tag() == "required" {
			return req, errors.New("symbol is required")
		}
		return req, fmt.Errorf("invalid symbol %q", req.Symbol)
	}
	return req, nil
}
