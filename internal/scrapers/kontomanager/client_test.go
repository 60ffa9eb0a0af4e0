package kontomanager

import (
	"context"
	"fmt"
	"kontomanager/internal/components/telemetry"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

const (
	test_username = "06811234567"
	test_password = "hunter2"
	test_session  = "sess-1"
	test_pdf      = "%PDF-1.4 fake"
)

// fakePortal imitates the endpoints of the portal well enough to drive the client.
type fakePortal struct {
	t      testing.TB
	server *httptest.Server

	mu               sync.Mutex
	logins           int
	expireNext       bool
	simResponse      string
	forwardResponse  string
	lastForm         url.Values
	lastSwitchTarget string
	cookieHeaders    []string
	withoutTokens    bool
	mutations        int
}

func newFakePortal(t testing.TB) *fakePortal {
	p := &fakePortal{
		t:               t,
		simResponse:     "OK",
		forwardResponse: "<html><body><p>Ihre Einstellungen wurden gespeichert.</p></body></html>",
	}
	p.server = httptest.NewServer(http.HandlerFunc(p.handle))
	t.Cleanup(p.server.Close)
	return p
}

func (p *fakePortal) config() Config {
	return Config{
		Username:          test_username,
		Password:          test_password,
		BaseUrl:           p.server.URL + "/app/",
		TimeoutSeconds:    5,
		RequestsPerSecond: 100,
	}
}

func (p *fakePortal) write(w http.ResponseWriter, contentType string, body string) {
	w.Header().Set("content-type", contentType)
	_, err := w.Write([]byte(body))
	if err != nil {
		p.t.Error(err)
	}
}

func (p *fakePortal) writeFixture(w http.ResponseWriter, name string) {
	p.write(w, "text/html; charset=utf-8", string(loadFixture(p.t, name)))
}

func (p *fakePortal) handle(w http.ResponseWriter, r *http.Request) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.cookieHeaders = append(p.cookieHeaders, r.Header.Get("cookie"))
	err := r.ParseForm()
	if err != nil {
		p.t.Error(err)
	}

	page, ok := strings.CutPrefix(r.URL.Path, "/app/")
	if !ok {
		http.NotFound(w, r)
		return
	}
	if page == endpoint_index {
		p.handleLogin(w, r)
		return
	}

	session, err := r.Cookie("PHPSESSID")
	if err != nil || session.Value != test_session || p.expireNext {
		p.expireNext = false
		p.writeFixture(w, "login.html")
		return
	}

	tokenless := `<html><body><form method="post"><input type="hidden" name="dosubmit" value="1"></form></body></html>`

	switch {
	case p.withoutTokens && r.Method == http.MethodGet && (page == endpoint_sim_settings || page == endpoint_call_forwarding):
		p.write(w, "text/html", tokenless)
	case page == endpoint_overview && r.URL.Query().Get("groupaction") == "change_subscriber":
		p.lastSwitchTarget = r.URL.Query().Get("subscriber")
		p.write(w, "text/html", `<html><body><div id="user-dropdown"><span>Anna - 0681 7654321</span></div></body></html>`)
	case page == endpoint_overview:
		p.writeFixture(w, "overview_contract.html")
	case page == endpoint_bills:
		p.writeFixture(w, "bills.html")
	case page == "rechnung.php":
		p.write(w, "application/pdf", test_pdf)
	case page == endpoint_call_history:
		p.writeFixture(w, "call_history.html")
	case page == endpoint_sim_get_data && r.Method == http.MethodPost:
		p.write(w, "application/json", `{"status":"OK","data":[{"key":"roaming-barred","value":true},{"key":"data-barred","value":false}]}`)
	case page == endpoint_sim_settings:
		p.writeFixture(w, "sim_settings_form.html")
	case page == endpoint_sim_set_data && r.Method == http.MethodPost:
		p.mutations++
		p.lastForm = r.PostForm
		p.write(w, "text/plain", p.simResponse)
	case page == endpoint_call_forwarding && r.Method == http.MethodPost:
		p.mutations++
		p.lastForm = r.PostForm
		p.write(w, "text/html", p.forwardResponse)
	case page == endpoint_call_forwarding:
		p.writeFixture(w, "call_forwarding.html")
	default:
		http.NotFound(w, r)
	}
}

func (p *fakePortal) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		p.writeFixture(w, "login.html")
		return
	}
	if r.PostForm.Get("login_rufnummer") != test_username || r.PostForm.Get("login_passwort") != test_password {
		p.writeFixture(w, "login.html")
		return
	}
	p.logins++
	http.SetCookie(w, &http.Cookie{Name: "PHPSESSID", Value: test_session, Path: "/"})
	p.write(w, "text/html", "<html><body><h1>Willkommen</h1></body></html>")
}

func (p *fakePortal) requestCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.cookieHeaders)
}

func (p *fakePortal) loginCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.logins
}

func (p *fakePortal) mutationCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.mutations
}

func (p *fakePortal) submittedForm() url.Values {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.lastForm
}

func (p *fakePortal) update(fn func(p *fakePortal)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fn(p)
}

func newTestClient(t testing.TB, portal *fakePortal, cfg Config) (*Client, *telemetry.RecordingAPI) {
	tel := telemetry.NewRecordingAPI()
	client, err := NewClient(cfg, tel)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(client.Close)
	return client, tel
}

func TestNewClientRejectsInvalidConfig(t *testing.T) {
	_, err := NewClient(Config{Brand: "yesss"}, telemetry.NewRecordingAPI())
	require.ErrorIs(t, err, ErrConfig)

	_, err = NewClient(Config{Brand: "bob", Username: "a", Password: "b"}, telemetry.NewRecordingAPI())
	require.ErrorIs(t, err, ErrConfig)
	require.Contains(t, err.Error(), "georg, xoxo, yesss")
}

func TestLogin(t *testing.T) {
	portal := newFakePortal(t)
	client, _ := newTestClient(t, portal, portal.config())

	err := client.Login(context.Background())
	require.NoError(t, err)
	require.True(t, client.LoggedIn())

	portal.update(func(p *fakePortal) {
		require.Len(t, p.cookieHeaders, 2)
		for _, header := range p.cookieHeaders {
			require.Contains(t, header, consent_cookie)
		}
	})
}

func TestLoginRejected(t *testing.T) {
	portal := newFakePortal(t)
	cfg := portal.config()
	cfg.Password = "wrong"
	client, tel := newTestClient(t, portal, cfg)

	_, err := client.GetAccountUsage(context.Background())
	require.ErrorIs(t, err, ErrLogin)
	require.Contains(t, err.Error(), "Die eingegebenen Daten sind leider nicht korrekt.")
	require.False(t, client.LoggedIn())
	require.Len(t, tel.WarningsFor(report_client_login), 1)
}

func TestHTTPStatusError(t *testing.T) {
	portal := newFakePortal(t)
	cfg := portal.config()
	cfg.BaseUrl = portal.server.URL + "/missing/"
	client, _ := newTestClient(t, portal, cfg)

	err := client.Login(context.Background())
	require.ErrorIs(t, err, ErrHTTPStatus)

	var kerr *Error
	require.ErrorAs(t, err, &kerr)
	require.Equal(t, http.StatusNotFound, kerr.StatusCode)
}

func TestTransportError(t *testing.T) {
	portal := newFakePortal(t)
	cfg := portal.config()
	portal.server.Close()
	client, _ := newTestClient(t, portal, cfg)

	_, err := client.GetPhoneNumbers(context.Background())
	require.ErrorIs(t, err, ErrTransport)
}

func TestSessionExpiry(t *testing.T) {
	portal := newFakePortal(t)
	client, tel := newTestClient(t, portal, portal.config())
	ctx := context.Background()

	_, err := client.GetAccountUsage(ctx)
	require.NoError(t, err)

	portal.update(func(p *fakePortal) {
		p.expireNext = true
	})

	_, err = client.ListCallHistory(ctx)
	require.ErrorIs(t, err, ErrLogin)
	require.False(t, client.LoggedIn())
	require.Len(t, tel.WarningsFor(report_client_session), 1)

	history, err := client.ListCallHistory(ctx)
	require.NoError(t, err)
	require.Len(t, history, 3)
	require.Equal(t, 2, portal.loginCount())
}

func TestReadOperations(t *testing.T) {
	portal := newFakePortal(t)
	client, _ := newTestClient(t, portal, portal.config())
	ctx := context.Background()

	usage, err := client.GetAccountUsage(ctx)
	require.NoError(t, err)
	require.Equal(t, "+436811234567", usage.PhoneNumber)
	require.Len(t, usage.Packages, 1)

	numbers, err := client.GetPhoneNumbers(ctx)
	require.NoError(t, err)
	require.Len(t, numbers, 2)

	bills, err := client.ListBills(ctx)
	require.NoError(t, err)
	require.Len(t, bills, 2)
	require.Equal(t, portal.server.URL+"/app/rechnung.php?id=1001", bills[0].BillPdfUrl)

	settings, err := client.GetSimSettings(ctx)
	require.NoError(t, err)
	require.Equal(t, SimSettings{RoamingBarred: ptr(true), DataBarred: ptr(false)}, settings)

	forwarding, err := client.GetCallForwardingSettings(ctx)
	require.NoError(t, err)
	require.Len(t, forwarding.Rules, len(Conditions))

	require.Equal(t, 1, portal.loginCount())
}

func TestSwitchActivePhoneNumber(t *testing.T) {
	portal := newFakePortal(t)
	client, _ := newTestClient(t, portal, portal.config())

	number, err := client.SwitchActivePhoneNumber(context.Background(), "abc==")
	require.NoError(t, err)
	require.Equal(t, "+436817654321", number)
	portal.update(func(p *fakePortal) {
		require.Equal(t, "abc==", p.lastSwitchTarget)
	})

	_, err = client.SwitchActivePhoneNumber(context.Background(), " ")
	require.ErrorIs(t, err, ErrInvalidArgument)
}

func TestGetBill(t *testing.T) {
	portal := newFakePortal(t)
	client, tel := newTestClient(t, portal, portal.config())
	ctx := context.Background()

	contents, err := client.GetBill(ctx, "R-1001", DocumentBill)
	require.NoError(t, err)
	require.Equal(t, test_pdf, string(contents))
	require.Empty(t, tel.WarningsFor(report_get_bill))

	_, err = client.GetBill(ctx, "R-4242", DocumentBill)
	require.ErrorIs(t, err, ErrNotFound)

	_, err = client.GetBill(ctx, "R-1002", DocumentEgn)
	require.ErrorIs(t, err, ErrUnavailable)

	requests := portal.requestCount()
	_, err = client.GetBill(ctx, "R-1001", "invoice")
	require.ErrorIs(t, err, ErrInvalidArgument)
	require.Equal(t, requests, portal.requestCount(), "an invalid document type must not reach the portal")
}

func TestSetSimSetting(t *testing.T) {
	portal := newFakePortal(t)
	client, _ := newTestClient(t, portal, portal.config())
	ctx := context.Background()

	message, err := client.SetSimSetting(ctx, "data_roaming_barred", true)
	require.NoError(t, err)
	require.Equal(t, "Successfully set 'data_roaming_barred' to enabled.", message)
	require.Equal(t, url.Values{
		"key":   {"data-roaming-barred"},
		"value": {"t"},
		"token": {"sim-token-7"},
	}, portal.submittedForm())

	message, err = client.ToggleRoaming(ctx, true)
	require.NoError(t, err)
	require.Equal(t, "Roaming has been enabled.", message)
	require.Equal(t, "roaming-barred", portal.submittedForm().Get("key"))
	require.Equal(t, "f", portal.submittedForm().Get("value"))

	portal.update(func(p *fakePortal) {
		p.simResponse = "NOK"
	})
	_, err = client.SetSimSetting(ctx, "data_barred", false)
	require.ErrorIs(t, err, ErrUnexpectedResponse)

	_, err = client.SetSimSetting(ctx, "flux_capacitor", false)
	require.ErrorIs(t, err, ErrInvalidArgument)
}

func TestSetCallForwardingRule(t *testing.T) {
	portal := newFakePortal(t)
	client, _ := newTestClient(t, portal, portal.config())
	ctx := context.Background()

	message, err := client.SetCallForwardingRule(ctx, CallForwardingRule{
		Condition:    ConditionUnreachable,
		Target:       TargetNumber,
		TargetNumber: "+436609998887",
	})
	require.NoError(t, err)
	require.Equal(t, "Successfully updated call forwarding rule for condition 'nerr'.", message)

	expected := url.Values{
		"dosubmit":                   {"1"},
		"token":                      {"fwd-token-42"},
		"alle_akt":                   {"d"},
		"nann_akt":                   {"b"},
		"nann_sek":                   {"20"},
		"wtel_akt":                   {"a"},
		"wtel_rn":                    {"+436641234567"},
		"nerr_akt":                   {"a"},
		"nerr_rn":                    {"+436609998887"},
		"btel_akt":                   {"a"},
		"voicemail_play_cli_disable": {"d"},
	}
	if diff := cmp.Diff(expected, portal.submittedForm()); diff != "" {
		t.Fatal("unexpected forwarding form (-want +got)\n", diff)
	}

	for _, failure := range []string{"Fehler beim Speichern", "An Error occurred"} {
		portal.update(func(p *fakePortal) {
			p.forwardResponse = fmt.Sprintf("<html><body><p>%s</p></body></html>", failure)
		})

		_, err = client.SetCallForwardingRule(ctx, CallForwardingRule{Condition: ConditionBusy, Target: TargetVoicemail})
		require.ErrorIs(t, err, ErrUnexpectedResponse, failure)
	}

	_, err = client.SetCallForwardingRule(ctx, CallForwardingRule{Condition: ConditionBusy, Target: TargetNumber})
	require.ErrorIs(t, err, ErrInvalidArgument)
}

func TestMutationsRequireToken(t *testing.T) {
	portal := newFakePortal(t)
	portal.update(func(p *fakePortal) {
		p.withoutTokens = true
	})
	client, tel := newTestClient(t, portal, portal.config())
	ctx := context.Background()

	_, err := client.SetSimSetting(ctx, "data_barred", true)
	require.ErrorIs(t, err, ErrMissingToken)

	_, err = client.ToggleRoaming(ctx, false)
	require.ErrorIs(t, err, ErrMissingToken)

	_, err = client.SetCallForwardingRule(ctx, CallForwardingRule{
		Condition: ConditionUnconditional,
		Target:    TargetVoicemail,
	})
	require.ErrorIs(t, err, ErrMissingToken)

	require.Zero(t, portal.mutationCount(), "nothing may be submitted without a token")
	require.Nil(t, portal.submittedForm())
	require.NotEmpty(t, tel.Broken)
}
