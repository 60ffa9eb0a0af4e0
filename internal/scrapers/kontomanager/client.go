// client.go contains the session and the request plumbing, the page specific logic lives
// in the parse_*.go files and the operations built on top of them in operations.go.

package kontomanager

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"kontomanager/internal/components/chrono"
	"kontomanager/internal/components/telemetry"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"sync"

	cloudflarebp "github.com/DaRealFreak/cloudflare-bp-go"
	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"
	"golang.org/x/time/rate"
)

const (
	report_client_login         = "client.login"
	report_client_session       = "client.session"
	report_client_csrf_token    = "client.csrf-token"
	report_client_new           = "client.new"
	endpoint_index              = "index.php"
	endpoint_overview           = "kundendaten.php"
	endpoint_bills              = "rechnungen.php"
	endpoint_call_history       = "gespraeche.php"
	endpoint_sim_get_data       = "einstellungen_sim_getdata.php"
	endpoint_sim_set_data       = "einstellungen_sim_setdata.php"
	endpoint_sim_settings       = "einstellungen_sim.php"
	endpoint_call_forwarding    = "einstellungen_rufumleitung.php"
	consent_cookie              = `CookieSettings={"categories":["necessary"]}`
	invalid_credentials_message = "Die eingegebenen Daten sind leider nicht korrekt"
	user_agent                  = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/123.0.0.0 Safari/537.36"
)

// PasswordField is the login form field carrying the password.
const PasswordField = "login_passwort"

// Client owns one authenticated session with the portal. Reads may be called one after
// another freely, mutations are serialized internally because each one fetches a CSRF token
// and consumes it with the following request.
type Client struct {
	BaseUrl *url.URL
	Http    *resty.Client

	username string
	password string
	tel      telemetry.API
	time     chrono.TimeAPI

	sessionMu sync.Mutex
	loggedIn  bool

	mutationMu sync.Mutex
}

// NewClient validates the config and prepares a session, it does not log in yet.
func NewClient(cfg Config, tel telemetry.API) (*Client, error) {
	if tel == nil {
		tel = telemetry.SlogAPI{}
	}
	tel = telemetry.NewScopedAPI("kontomanager", tel)

	err := cfg.Validate()
	if err != nil {
		tel.ReportBroken(report_client_new, err)
		return nil, err
	}
	baseUrl, err := cfg.ResolveBaseUrl()
	if err != nil {
		return nil, err
	}

	httpClient := resty.New()
	httpClient.SetBaseURL(baseUrl.String())
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, newError(KindConfig, "create cookie jar", err)
	}
	httpClient.SetCookieJar(jar)
	if cfg.CloudflareBypass {
		httpClient.GetClient().Transport = cloudflarebp.AddCloudFlareByPass(httpClient.GetClient().Transport)
	}

	httpClient.SetHeader("user-agent", user_agent)
	// the jar appends its cookies to this header, so the consent cookie goes out on every request
	httpClient.SetHeader("cookie", consent_cookie)
	httpClient.SetRedirectPolicy(
		resty.FlexibleRedirectPolicy(10),
		resty.DomainCheckRedirectPolicy(baseUrl.Hostname()),
	)
	httpClient.SetTimeout(cfg.timeout())

	rateLimiter := rate.NewLimiter(rate.Limit(cfg.requestsPerSecond()), 2)
	httpClient.OnBeforeRequest(func(_ *resty.Client, req *resty.Request) error {
		return rateLimiter.Wait(req.Context())
	})

	telemetry.InstrumentResty(httpClient, tel)

	return &Client{
		BaseUrl:  baseUrl,
		Http:     httpClient,
		username: cfg.Username,
		password: cfg.Password,
		tel:      tel,
		time:     chrono.NewStandardTime(),
	}, nil
}

// Close releases idle connections held by the session.
func (c *Client) Close() {
	c.Http.GetClient().CloseIdleConnections()
}

// LoggedIn reports whether the client currently believes it holds a valid session.
func (c *Client) LoggedIn() bool {
	c.sessionMu.Lock()
	defer c.sessionMu.Unlock()
	return c.loggedIn
}

func (c *Client) ensureLoggedIn(ctx context.Context) error {
	c.sessionMu.Lock()
	defer c.sessionMu.Unlock()
	if c.loggedIn {
		return nil
	}
	return c.login(ctx)
}

// Login performs the login form submission, it is called implicitly by every operation.
func (c *Client) Login(ctx context.Context) error {
	c.sessionMu.Lock()
	defer c.sessionMu.Unlock()
	return c.login(ctx)
}

func (c *Client) login(ctx context.Context) error {
	c.tel.ReportDebug(report_client_login, c.username)

	_, err := c.send(ctx, c.Http.R(), "GET", endpoint_index)
	if err != nil {
		c.tel.ReportBroken(report_client_login, fmt.Errorf("warm-up request: %w", err))
		return wrapLogin(err)
	}

	res, err := c.send(
		ctx,
		c.Http.R().SetFormData(map[string]string{
			"login_rufnummer": c.username,
			PasswordField:     c.password,
		}),
		"POST",
		endpoint_index,
	)
	if err != nil {
		c.tel.ReportBroken(report_client_login, fmt.Errorf("login request: %w", err))
		return wrapLogin(err)
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewBuffer(res.Body()))
	if err != nil {
		c.tel.ReportBroken(report_client_login, fmt.Errorf("parse login response: %w", err))
		return newError(KindParse, "parse login response", err)
	}

	if hasLoginForm(doc) || strings.Contains(res.String(), invalid_credentials_message) {
		reason := strings.TrimSpace(doc.Find(`div[role="alert"] p strong`).First().Text())
		if reason == "" {
			reason = "Invalid credentials"
		}
		c.tel.ReportWarning(report_client_login, c.username, reason)
		return newError(KindLogin, fmt.Sprintf("login failed: %s", reason), nil)
	}

	c.loggedIn = true
	c.tel.ReportDebug("logged in", c.username)
	return nil
}

// wrapLogin keeps the kind of a transport/status failure but marks it as happening during login.
func wrapLogin(err error) error {
	var kerr *Error
	if errors.As(err, &kerr) {
		return &Error{
			Kind:       kerr.Kind,
			Message:    "during login: " + kerr.Message,
			StatusCode: kerr.StatusCode,
			Err:        kerr.Err,
		}
	}
	return newError(KindTransport, "during login", err)
}

func hasLoginForm(doc *goquery.Document) bool {
	return doc.Find("#loginform").Length() > 0
}

// send issues a request and maps failures to client errors: transport errors to KindTransport
// and 4xx/5xx responses to KindHTTPStatus.
func (c *Client) send(ctx context.Context, req *resty.Request, method, endpoint string) (*resty.Response, error) {
	res, err := req.SetContext(ctx).Execute(method, endpoint)
	if err != nil {
		return nil, newError(KindTransport, fmt.Sprintf("%s %s", method, endpoint), err)
	}
	if res.IsError() {
		return nil, &Error{
			Kind:       KindHTTPStatus,
			Message:    fmt.Sprintf("%s %s: status %d", method, endpoint, res.StatusCode()),
			StatusCode: res.StatusCode(),
		}
	}
	return res, nil
}

// fetch makes an authenticated request.
func (c *Client) fetch(ctx context.Context, report string, req *resty.Request, method, endpoint string) (*resty.Response, error) {
	res, err := c.send(ctx, req, method, endpoint)
	if err != nil {
		c.tel.ReportBroken(report, fmt.Errorf("fetch: %w", err), endpoint)
		return nil, err
	}
	return res, nil
}

// fetchDocument makes an authenticated request and parses the response as html. A response
// showing the login form means the portal dropped the session, it is surfaced as KindLogin
// and the next operation logs in again.
func (c *Client) fetchDocument(ctx context.Context, report string, req *resty.Request, method, endpoint string) (*goquery.Document, error) {
	res, err := c.fetch(ctx, report, req, method, endpoint)
	if err != nil {
		return nil, err
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewBuffer(res.Body()))
	if err != nil {
		c.tel.ReportBroken(report, fmt.Errorf("parse: %w", err), endpoint)
		return nil, newError(KindParse, fmt.Sprintf("parse %s", endpoint), err)
	}
	err = c.checkSession(doc, endpoint)
	if err != nil {
		return nil, err
	}
	return doc, nil
}

func (c *Client) checkSession(doc *goquery.Document, endpoint string) error {
	if !hasLoginForm(doc) {
		return nil
	}
	c.sessionMu.Lock()
	c.loggedIn = false
	c.sessionMu.Unlock()

	c.tel.ReportWarning(report_client_session, "portal returned the login form", endpoint)
	return newError(KindLogin, fmt.Sprintf("session expired while fetching %s", endpoint), nil)
}

// checkSessionBody is checkSession for endpoints that do not answer with html.
func (c *Client) checkSessionBody(body []byte, endpoint string) error {
	if !bytes.Contains(body, []byte("loginform")) {
		return nil
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil
	}
	return c.checkSession(doc, endpoint)
}

// csrfToken fetches a form page and returns the token hidden in it.
func (c *Client) csrfToken(ctx context.Context, endpoint string) (string, error) {
	doc, err := c.fetchDocument(ctx, report_client_csrf_token, c.Http.R(), "GET", endpoint)
	if err != nil {
		return "", err
	}
	token := doc.Find("input[name='token']").AttrOr("value", "")
	if token == "" {
		err := newError(KindMissingToken, fmt.Sprintf("could not find CSRF token on %s", endpoint), nil)
		c.tel.ReportBroken(report_client_csrf_token, err)
		return "", err
	}
	return token, nil
}
