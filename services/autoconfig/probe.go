package autoconfig

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"time"

	bichon_errors "github.com/therolffr/bichon/errors"
)

// clientConfig mirrors the Thunderbird autoconfig XML document.
type clientConfig struct {
	XMLName       xml.Name      `xml:"clientConfig"`
	EmailProvider emailProvider `xml:"emailProvider"`
	OAuth2        *oauth2Config `xml:"oAuth2"`
}

type emailProvider struct {
	IncomingServers []incomingServer `xml:"incomingServer"`
}

type incomingServer struct {
	Type       string `xml:"type,attr"`
	Hostname   string `xml:"hostname"`
	Port       int    `xml:"port"`
	SocketType string `xml:"socketType"`
}

type oauth2Config struct {
	Issuer   string `xml:"issuer"`
	Scope    string `xml:"scope"`
	AuthURL  string `xml:"authURL"`
	TokenURL string `xml:"tokenURL"`
}

var probeURLs = []string{
	"https://autoconfig.%s/mail/config-v1.1.xml?emailaddress=%s",
	"https://%s/.well-known/autoconfig/mail/config-v1.1.xml",
	"https://autoconfig.thunderbird.net/v1.1/%s",
}

// probe fetches the domain's autoconfig document, trying the provider's
// own endpoints before the public ISP database.
func probe(ctx context.Context, httpClient *http.Client, email, domain string) (*clientConfig, error) {
	urls := []string{
		fmt.Sprintf(probeURLs[0], domain, email),
		fmt.Sprintf(probeURLs[1], domain),
		fmt.Sprintf(probeURLs[2], domain),
	}

	var lastErr error
	for _, url := range urls {
		config, err := fetchConfig(ctx, httpClient, url)
		if err == nil {
			return config, nil
		}
		lastErr = err
	}
	return nil, bichon_errors.Wrap(bichon_errors.AutoconfigFetchFailed,
		fmt.Sprintf("failed to fetch autoconfig for domain %q", domain), lastErr)
}

func fetchConfig(ctx context.Context, httpClient *http.Client, url string) (*clientConfig, error) {
	reqCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("autoconfig endpoint returned %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, err
	}

	var config clientConfig
	if err := xml.Unmarshal(body, &config); err != nil {
		return nil, err
	}
	return &config, nil
}
