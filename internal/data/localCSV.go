package data

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/gocarina/gocsv"

	"github.com/contactkeval/lets-be-rational/internal/logger"
)

// localCSVDataProvider implements Data Provider from a local quote file.
//
// The file carries one OptionQuote per row under the header
// symbol,underlying,type,strike,forward,price,expiry,as_of[,volatility].
type localCSVDataProvider struct {
	path      string
	secondary Provider
}

// NewLocalCSVProvider convenience constructor.
func NewLocalCSVProvider(path string, secondary Provider) Provider {
	return &localCSVDataProvider{path: path, secondary: secondary}
}

func (localCSVDataProv *localCSVDataProvider) Name() string { return "csv" }

func (localCSVDataProv *localCSVDataProvider) Secondary() Provider {
	return localCSVDataProv.secondary
}

// GetQuotes reads the file and keeps the rows for underlying on asOf.
//
// Parameters:
//   - ctx: checked before reading
//   - underlying: case-insensitive symbol filter
//   - asOf: valuation date filter; zero keeps every date
//
// Returns:
//   - []OptionQuote: matching rows in file order
//   - error: if the file cannot be read or parsed, or nothing matches and
//     there is no secondary provider to ask
func (localCSVDataProv *localCSVDataProvider) GetQuotes(ctx context.Context, underlying string, asOf time.Time) ([]OptionQuote, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	quotes, err := ReadQuotesCSV(localCSVDataProv.path)
	if err != nil {
		return nil, err
	}

	out := quotes[:0]
	for _, q := range quotes {
		if !strings.EqualFold(q.Underlying, underlying) {
			continue
		}
		if !asOf.IsZero() && !q.AsOf.Equal(NewDate(asOf).Time) {
			continue
		}
		out = append(out, q)
	}
	logger.Debugf("csv %s: %d of %d rows match %s", localCSVDataProv.path, len(out), len(quotes), underlying)

	if len(out) == 0 {
		if localCSVDataProv.secondary != nil {
			logger.Infof("no quotes for %s in %s, delegating to %s provider",
				underlying, localCSVDataProv.path, localCSVDataProv.secondary.Name())
			return localCSVDataProv.secondary.GetQuotes(ctx, underlying, asOf)
		}
		return nil, fmt.Errorf("no quotes for %s in %s", underlying, localCSVDataProv.path)
	}
	return out, nil
}

// ReadQuotesCSV parses a whole quote file.
func ReadQuotesCSV(path string) ([]OptionQuote, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open quotes file: %w", err)
	}
	defer f.Close()

	var quotes []OptionQuote
	if err := gocsv.UnmarshalFile(f, &quotes); err != nil {
		return nil, fmt.Errorf("read quotes csv %s: %w", path, err)
	}
	return quotes, nil
}
