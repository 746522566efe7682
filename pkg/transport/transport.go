/*
Copyright the DRNavigator contributors

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package transport issues authenticated JSON HTTP requests to Site Manager
// endpoints. Responses come back as a decoded body plus the HTTP status code;
// failures are classified so callers can tell an untrusted certificate from a
// plain network error without inspecting error strings.
package transport

import (
	"bytes"
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/sethgrid/pester"
	"github.com/sirupsen/logrus"
)

// SSL return codes mirror the numeric codes the Site Manager tooling has
// always reported (OpenSSL's SSL_ERROR_SSL and SSL_ERROR_EOF).
const (
	SSLErrorSSL = 1
	SSLErrorEOF = 8
)

const (
	// DefaultRetries bounds how many times a failed request is re-issued.
	DefaultRetries = 3

	defaultGetTimeout  = 10 * time.Second
	defaultPostTimeout = 30 * time.Second
)

// Classified request failures.
var (
	ErrSSLUntrusted = errors.New("SSL certificate verify failed")
	ErrSSLEOF       = errors.New("SSL connection closed in violation of protocol")
	ErrDecode       = errors.New("wrong JSON data received")
	ErrNetwork      = errors.New("request failed")
)

// Options carries per-request settings. The zero value means: no auth, full
// certificate verification against the system pool, default retries and
// timeouts.
type Options struct {
	Token    string
	UseAuth  bool
	CACert   string // path to a CA bundle; empty means system pool
	Insecure bool   // skip server certificate verification
	Retries  int    // <0 disables retries entirely

	GetTimeout  time.Duration
	PostTimeout time.Duration
}

func (o Options) retries() int {
	if o.Retries == 0 {
		return DefaultRetries
	}
	if o.Retries < 0 {
		return 0
	}
	return o.Retries
}

// Client performs Site Manager requests. It is safe for concurrent use; the
// underlying connection pool is shared between workers.
type Client struct {
	opts Options

	httpClient *http.Client
}

// NewClient builds a client for one Site Manager endpoint's settings.
func NewClient(opts Options) (*Client, error) {
	tlsConfig := &tls.Config{InsecureSkipVerify: opts.Insecure}
	if opts.CACert != "" && !opts.Insecure {
		pem, err := os.ReadFile(opts.CACert)
		if err != nil {
			return nil, errors.Wrapf(err, "couldn't read CA bundle %v", opts.CACert)
		}
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(pem) {
			return nil, errors.Errorf("no certificates found in CA bundle %v", opts.CACert)
		}
		tlsConfig.RootCAs = pool
	}
	if opts.GetTimeout == 0 {
		opts.GetTimeout = defaultGetTimeout
	}
	if opts.PostTimeout == 0 {
		opts.PostTimeout = defaultPostTimeout
	}

	return &Client{
		opts: opts,
		httpClient: &http.Client{
			Transport: &http.Transport{TLSClientConfig: tlsConfig},
		},
	}, nil
}

// Request sends a JSON request to url and decodes the JSON response. A
// non-empty body makes it a POST, otherwise a GET. The returned code is the
// HTTP status code (or an SSL code on a classified TLS failure, or 0 when the
// request never produced one); a non-2xx status is not an error here, callers
// decide what to do with the code.
//
// SSL-classified failures are never retried.
func (c *Client) Request(rawurl string, body map[string]interface{}) (map[string]interface{}, int, error) {
	logrus.WithFields(logrus.Fields{"url": rawurl, "data": body}).Debug("REST request")

	req, timeout, err := c.newRequest(rawurl, body)
	if err != nil {
		return nil, 0, err
	}

	client := *c.httpClient
	client.Timeout = timeout

	resp, err := client.Do(req)
	if err != nil {
		if code, sslErr := classifySSL(err); sslErr != nil {
			logrus.WithField("url", rawurl).Error(sslErr.Error())
			return nil, code, sslErr
		}
		resp, err = c.retry(&client, rawurl, body)
	}
	if err != nil {
		return nil, 0, errors.Wrapf(ErrNetwork, "%v: %v", rawurl, err)
	}
	defer resp.Body.Close()

	decoded := map[string]interface{}{}
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		if err == io.EOF { // empty body counts as an empty object
			decoded = map[string]interface{}{}
		} else {
			return nil, 0, errors.Wrapf(ErrDecode, "%v", err)
		}
	}

	logrus.WithFields(logrus.Fields{"url": rawurl, "code": resp.StatusCode, "response": decoded}).Debug("REST response")
	return decoded, resp.StatusCode, nil
}

func (c *Client) newRequest(rawurl string, body map[string]interface{}) (*http.Request, time.Duration, error) {
	var (
		req     *http.Request
		timeout time.Duration
		err     error
	)
	if len(body) > 0 {
		encoded, merr := json.Marshal(body)
		if merr != nil {
			return nil, 0, errors.Wrap(merr, "couldn't encode request body")
		}
		req, err = http.NewRequest(http.MethodPost, rawurl, bytes.NewReader(encoded))
		timeout = c.opts.PostTimeout
		if req != nil {
			req.Header.Set("Content-Type", "application/json")
		}
	} else {
		req, err = http.NewRequest(http.MethodGet, rawurl, nil)
		timeout = c.opts.GetTimeout
	}
	if err != nil {
		return nil, 0, errors.Wrapf(err, "couldn't construct request to %v", rawurl)
	}
	req.Header.Set("Accept", "application/json")
	if c.opts.UseAuth && c.opts.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.opts.Token)
	}
	return req, timeout, nil
}

// retry re-issues a failed request through pester with bounded attempts.
func (c *Client) retry(client *http.Client, rawurl string, body map[string]interface{}) (*http.Response, error) {
	retries := c.opts.retries()
	if retries == 0 {
		return nil, errors.Errorf("request to %v failed and retries are disabled", rawurl)
	}

	pc := pester.NewExtendedClient(client)
	pc.MaxRetries = retries
	pc.Backoff = pester.DefaultBackoff

	req, _, err := c.newRequest(rawurl, body)
	if err != nil {
		return nil, err
	}
	return pc.Do(req)
}

// classifySSL maps TLS-level failures onto the historical numeric SSL codes.
// A nil second return means the error was not TLS related.
func classifySSL(err error) (int, error) {
	var uerr *url.Error
	if errors.As(err, &uerr) {
		err = uerr.Err
	}

	var unknownAuthority x509.UnknownAuthorityError
	var hostnameErr x509.HostnameError
	var certInvalid x509.CertificateInvalidError
	if errors.As(err, &unknownAuthority) || errors.As(err, &hostnameErr) || errors.As(err, &certInvalid) {
		return SSLErrorSSL, ErrSSLUntrusted
	}
	var verifyErr *tls.CertificateVerificationError
	if errors.As(err, &verifyErr) {
		return SSLErrorSSL, ErrSSLUntrusted
	}
	var recordErr tls.RecordHeaderError
	if errors.As(err, &recordErr) || isTLSEOF(err) {
		return SSLErrorEOF, ErrSSLEOF
	}
	return 0, nil
}

func isTLSEOF(err error) bool {
	if errors.Is(err, io.ErrUnexpectedEOF) {
		return true
	}
	// The handshake layer reports a peer hangup as a bare EOF with a
	// tls-prefixed message.
	msg := err.Error()
	return strings.Contains(msg, "tls:") && strings.HasSuffix(msg, "EOF")
}
