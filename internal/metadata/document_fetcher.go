package metadata

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/tickerwatch/tickerwatch/internal/metadata/kidparse"
)

const (
	defaultFundDocsURL = "https://fund-docs.vanguard.com"

	// Document hosts reject requests without a browser user agent.
	documentUserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 Chrome/120.0.0.0 Safari/537.36"

	// KIDs are 2-3 pages; anything past this is not a disclosure document.
	maxDocumentSize = 10 << 20
)

var pdfSignature = []byte("%PDF")

// TextExtractor converts PDF bytes to plain text.
type TextExtractor interface {
	ExtractText(pdfContent []byte) (string, error)
}

// KIDFetcher resolves fund metadata from Vanguard PRIIPs Key Information
// Documents. Vanguard publishes KIDs at a deterministic URL derived from the
// ISIN, so Irish-domiciled funds can be resolved without any search step.
type KIDFetcher struct {
	baseURL    string
	httpClient *http.Client
	extractor  TextExtractor
	log        zerolog.Logger
}

// NewKIDFetcher creates a KID document fetcher.
// baseURL is optional - empty uses the default Vanguard document host.
func NewKIDFetcher(baseURL string, extractor TextExtractor, log zerolog.Logger) *KIDFetcher {
	if baseURL == "" {
		baseURL = defaultFundDocsURL
	}
	return &KIDFetcher{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
		extractor: extractor,
		log:       log.With().Str("fetcher", "vanguard_kid").Logger(),
	}
}

// Name implements Fetcher.
func (f *KIDFetcher) Name() string {
	return "vanguard_kid"
}

// CanHandle accepts Irish-domiciled ISINs, where Vanguard's UCITS range lives.
func (f *KIDFetcher) CanHandle(isin, _ string) bool {
	return strings.HasPrefix(strings.ToUpper(isin), "IE")
}

// DocumentURL returns the KID location for the given ISIN.
func (f *KIDFetcher) DocumentURL(isin string) string {
	return fmt.Sprintf("%s/%s_priipskid_en.pdf", f.baseURL, strings.ToLower(isin))
}

// Fetch downloads and parses the KID for the given ISIN.
func (f *KIDFetcher) Fetch(ctx context.Context, isin, ticker string) (*SecurityMetadata, error) {
	docURL := f.DocumentURL(isin)

	content, err := f.download(ctx, docURL)
	if err != nil {
		return nil, err
	}

	text, err := f.extractor.ExtractText(content)
	if err != nil {
		return nil, fmt.Errorf("failed to extract document text: %w", err)
	}

	extract := kidparse.Parse(text)
	if extract == nil {
		f.log.Debug().Str("isin", isin).Msg("Document yielded no expense ratio")
		return nil, nil
	}

	f.log.Debug().
		Str("isin", isin).
		Str("name", extract.Name).
		Msg("Parsed fund document")

	return &SecurityMetadata{
		ISIN:      strings.ToUpper(isin),
		Ticker:    ticker,
		Name:      extract.Name,
		SourceURL: docURL,
		Fund: &FundAttributes{
			TER:          extract.TER,
			RiskLevel:    extract.RiskLevel,
			Distribution: extract.Distribution,
			Replication:  extract.Replication,
			FundFamily:   "Vanguard",
		},
	}, nil
}

// download fetches the document and verifies it is actually a PDF. Some hosts
// answer unknown ISINs with an HTML error page and a 200 status.
func (f *KIDFetcher) download(ctx context.Context, docURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, docURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", documentUserAgent)

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("document download failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("document host returned status %d for %s", resp.StatusCode, docURL)
	}

	content, err := io.ReadAll(io.LimitReader(resp.Body, maxDocumentSize))
	if err != nil {
		return nil, fmt.Errorf("failed to read document body: %w", err)
	}

	if !bytes.HasPrefix(content, pdfSignature) {
		return nil, fmt.Errorf("response from %s is not a PDF", docURL)
	}

	return content, nil
}
