// resolve.go - Turn a carousel request document into engine input.
package assets

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/netip"
	"net/url"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/taiye-kotiku/carmi-carousel/pkg/carousel"
	"github.com/taiye-kotiku/carmi-carousel/pkg/template"
)

// ErrForbiddenAddress is returned when a logo URL points at a loopback,
// private or link-local address.
var ErrForbiddenAddress = errors.New("address not allowed")

// carrier-grade NAT, not covered by netip.Addr.IsPrivate
var sharedAddrSpace = netip.MustParsePrefix("100.64.0.0/10")

// Resolver loads the assets a request refers to: inline base64 images,
// uploaded asset ids and logo URLs.
type Resolver struct {
	store    *Store
	client   *http.Client
	maxBytes int64
	logger   *zap.Logger

	allowPrivate bool // tests only
}

// NewResolver returns a resolver fetching logo URLs with the given timeout
// and size limit. store may be nil, in which case logo ids never resolve.
func NewResolver(store *Store, timeout time.Duration, maxBytes int64, logger *zap.Logger) *Resolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	r := &Resolver{
		store:    store,
		maxBytes: maxBytes,
		logger:   logger.Named("assets"),
	}

	dialer := &net.Dialer{Timeout: timeout, Control: r.checkDial}
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.Proxy = nil
	transport.DialContext = dialer.DialContext
	r.client = &http.Client{Timeout: timeout, Transport: transport}
	return r
}

// checkDial runs after name resolution, so redirects and DNS names that
// resolve to internal hosts are refused as well.
func (r *Resolver) checkDial(_, address string, _ syscall.RawConn) error {
	if r.allowPrivate {
		return nil
	}
	ap, err := netip.ParseAddrPort(address)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrForbiddenAddress, address)
	}
	if !publicAddr(ap.Addr()) {
		return fmt.Errorf("%w: %s", ErrForbiddenAddress, ap.Addr())
	}
	return nil
}

func publicAddr(a netip.Addr) bool {
	a = a.Unmap()
	switch {
	case !a.IsValid(), a.IsUnspecified(), a.IsLoopback(), a.IsPrivate(),
		a.IsLinkLocalUnicast(), a.IsLinkLocalMulticast(), a.IsInterfaceLocalMulticast(),
		a.IsMulticast(), sharedAddrSpace.Contains(a):
		return false
	}
	return true
}

// Request converts spec into a carousel.Request. A logo that cannot be
// loaded is dropped with a warning. An undecodable custom background or an
// invalid logo size is an error wrapping template.ErrInvalidSpec.
func (r *Resolver) Request(ctx context.Context, spec *template.CarouselSpec) (carousel.Request, []string, error) {
	size, err := template.ParseLogoSize(spec.LogoSize)
	if err != nil {
		return carousel.Request{}, nil, fmt.Errorf("%w: %v", template.ErrInvalidSpec, err)
	}

	req := carousel.Request{
		Slides:       spec.Slides,
		TemplateID:   spec.TemplateID,
		LogoPosition: spec.LogoPosition,
		LogoSize:     size,
		AccentColor:  spec.AccentColor,
		FontColor:    spec.FontColor,
		FontFamily:   spec.FontFamily,
		HeadlineSize: spec.HeadlineSize,
		BodySize:     spec.BodySize,
		Panorama:     spec.Panorama,
		Blur:         spec.Blur,
	}

	if spec.Background != "" {
		bg, err := DecodeBase64(spec.Background)
		if err != nil {
			return carousel.Request{}, nil, fmt.Errorf("%w: custom_background_base64: %v", template.ErrInvalidSpec, err)
		}
		req.CustomBackground = bg
	}

	logo, warning := r.logo(ctx, spec)
	req.Logo = logo
	var warnings []string
	if warning != "" {
		warnings = append(warnings, warning)
		r.logger.Warn(warning)
	}
	return req, warnings, nil
}

// logo tries logo_base64, logo_id, then logo_url.
func (r *Resolver) logo(ctx context.Context, spec *template.CarouselSpec) ([]byte, string) {
	switch {
	case spec.LogoBase64 != "":
		data, err := DecodeBase64(spec.LogoBase64)
		if err != nil {
			return nil, fmt.Sprintf("logo_base64 ignored: %v", err)
		}
		return data, ""
	case spec.LogoID != "":
		if r.store == nil {
			return nil, fmt.Sprintf("logo %q not found", spec.LogoID)
		}
		a, ok := r.store.Get(spec.LogoID)
		if !ok {
			return nil, fmt.Sprintf("logo %q not found", spec.LogoID)
		}
		return a.Data, ""
	case spec.LogoURL != "":
		data, err := r.Fetch(ctx, spec.LogoURL)
		if err != nil {
			return nil, fmt.Sprintf("logo_url ignored: %v", err)
		}
		return data, ""
	}
	return nil, ""
}

// Fetch downloads an http or https URL, refusing bodies above the size limit
// and hosts that resolve to internal addresses.
func (r *Resolver) Fetch(ctx context.Context, rawURL string) ([]byte, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parse url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("unsupported url scheme %q", u.Scheme)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}
	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", u.Host, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch %s: status %d", u.Host, resp.StatusCode)
	}

	body := io.Reader(resp.Body)
	if r.maxBytes > 0 {
		body = io.LimitReader(resp.Body, r.maxBytes+1)
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", u.Host, err)
	}
	if r.maxBytes > 0 && int64(len(data)) > r.maxBytes {
		return nil, fmt.Errorf("%w: more than %d bytes", ErrTooLarge, r.maxBytes)
	}
	return data, nil
}

// DecodeBase64 decodes standard base64, padded or not, with an optional
// "data:<mime>;base64," prefix.
func DecodeBase64(s string) ([]byte, error) {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "data:") {
		_, payload, ok := strings.Cut(s, ",")
		if !ok {
			return nil, errors.New("malformed data url")
		}
		s = payload
	}
	s = strings.Map(func(r rune) rune {
		if r == '\n' || r == '\r' || r == ' ' || r == '\t' {
			return -1
		}
		return r
	}, s)
	if s == "" {
		return nil, errors.New("empty image data")
	}

	data, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		data, err = base64.RawStdEncoding.DecodeString(strings.TrimRight(s, "="))
	}
	if err != nil {
		return nil, fmt.Errorf("decode base64: %w", err)
	}
	return data, nil
}
