// Package client fetches raw documents from a Skyward Family Access portal.
package client

import (
	"context"
	"fmt"
	"net/http/cookiejar"
	"regexp"
	"skyward-backend/lib/assert"
	"skyward-backend/lib/chrono"
	"skyward-backend/lib/restyutil"
	"skyward-backend/lib/skyward/session"
	"skyward-backend/lib/telemetry"
	"strconv"
	"strings"
	"time"

	cloudflarebp "github.com/DaRealFreak/cloudflare-bp-go"
	"github.com/go-resty/resty/v2"
	"golang.org/x/time/rate"
)

const (
	report_client_fetch            = "client.fetch"
	report_client_fetch_grade_info = "client.fetch-grade-info"
)

const (
	GradebookPage = "sfgradebook001.w"
	HistoryPage   = "sfacademichistory001.w"
	GradeInfoPath = "httploader.p?file=sfgradebook001.w"
)

const userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/123.0.0.0 Safari/537.36"

type Options struct {
	// Timeout defaults to 30 seconds.
	Timeout time.Duration
	// RequestsPerSecond defaults to 2.
	RequestsPerSecond float64
	// DumpDir, when set, receives a dump of every http exchange, it may use the `<dev_state>`
	// prefix.
	DumpDir string
	// Time defaults to the local clock, it stamps grade info request ids.
	Time chrono.TimeAPI
}

type Client struct {
	http *resty.Client
	tel  telemetry.API
	time chrono.TimeAPI
}

func New(baseUrl string, tel telemetry.API, opts Options) (*Client, error) {
	assert.NotNil(tel)
	assert.NotEmptyStr(baseUrl)
	tel = telemetry.NewScopedAPI("skyward_client", tel)

	if opts.Timeout == 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.RequestsPerSecond == 0 {
		opts.RequestsPerSecond = 2
	}
	if opts.Time == nil {
		local, err := chrono.NewStandardTime("")
		if err != nil {
			return nil, err
		}
		opts.Time = local
	}

	httpClient := resty.New()
	httpClient.SetBaseURL(strings.TrimRight(baseUrl, "/"))
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}
	httpClient.SetCookieJar(jar)
	httpClient.GetClient().Transport = cloudflarebp.AddCloudFlareByPass(httpClient.GetClient().Transport)
	httpClient.SetHeader("user-agent", userAgent)
	httpClient.SetTimeout(opts.Timeout)

	// max burst >= requests per second just means that no requests will be dropped
	burst := max(int(opts.RequestsPerSecond), 1)
	rateLimiter := rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), burst)
	httpClient.OnBeforeRequest(func(_ *resty.Client, req *resty.Request) error {
		return rateLimiter.Wait(req.Context())
	})

	telemetry.InstrumentResty(httpClient, "skyward/client/http", tel)
	if opts.DumpDir != "" {
		output, err := restyutil.NewFilesystemOutput(opts.DumpDir)
		if err != nil {
			return nil, err
		}
		restyutil.AttachOutput(httpClient, output)
	}

	return &Client{http: httpClient, tel: tel, time: opts.Time}, nil
}

func (c *Client) post(ctx context.Context, reportId, path string, form map[string]string) (string, error) {
	res, err := c.http.R().
		SetContext(ctx).
		SetFormData(form).
		Post(path)
	if err != nil {
		c.tel.ReportBroken(reportId, fmt.Errorf("post %s: %w", path, err))
		return "", err
	}
	if res.IsError() {
		err := fmt.Errorf("post %s: unexpected status %s", path, res.Status())
		c.tel.ReportBroken(reportId, err)
		return "", err
	}
	return res.String(), nil
}

func (c *Client) fetchPage(ctx context.Context, page string, codes session.Codes) (string, error) {
	err := codes.Validate()
	if err != nil {
		return "", err
	}
	return c.post(ctx, report_client_fetch, page, codes.Form())
}

// FetchGradebook returns the gradebook page.
func (c *Client) FetchGradebook(ctx context.Context, codes session.Codes) (string, error) {
	return c.fetchPage(ctx, GradebookPage, codes)
}

// FetchHistory returns the academic history page.
func (c *Client) FetchHistory(ctx context.Context, codes session.Codes) (string, error) {
	return c.fetchPage(ctx, HistoryPage, codes)
}

// GradeInfoRequest identifies one grade dialog, the values are read off the `showGradeInfo`
// anchor of a gradebook cell.
type GradeInfoRequest struct {
	StuID       string `json:"stuId"`
	EntityID    string `json:"entityId"`
	CorNumID    string `json:"corNumId"`
	Track       string `json:"track"`
	Section     string `json:"section"`
	GbID        string `json:"gbId"`
	Bucket      string `json:"bucket"`
	SubjectID   string `json:"subjectId"`
	DialogLevel string `json:"dialogLevel"`
	// IsEoc defaults to "no".
	IsEoc string `json:"isEoc"`
}

// Form renders the dialog request as the loader expects it.
func (r GradeInfoRequest) Form(codes session.Codes, requestId string) map[string]string {
	isEoc := r.IsEoc
	if isEoc == "" {
		isEoc = "no"
	}
	return map[string]string{
		"action":      "viewGradeInfoDialog",
		"gridCount":   "1",
		"fromHttp":    "yes",
		"stuId":       r.StuID,
		"entityId":    r.EntityID,
		"corNumId":    r.CorNumID,
		"track":       r.Track,
		"section":     r.Section,
		"gbId":        r.GbID,
		"bucket":      r.Bucket,
		"subjectId":   r.SubjectID,
		"dialogLevel": r.DialogLevel,
		"isEoc":       isEoc,
		"ishttp":      "true",
		"sessionid":   codes.SessionID,
		"encses":      codes.Encses,
		"dwd":         codes.Dwd,
		"wfaacl":      codes.Wfaacl,
		"requestId":   requestId,
	}
}

var cdataOutputRegex = regexp.MustCompile(`(?s)<output><!\[CDATA\[(.*)\]\]></output>`)

// UnwrapOutput returns the CDATA content of an `<output>` loader response, other responses
// are returned as is.
func UnwrapOutput(body string) string {
	m := cdataOutputRegex.FindStringSubmatch(body)
	if m == nil || m[1] == "" {
		return body
	}
	return m[1]
}

// FetchGradeInfo returns the grade info dialog document of one course and bucket.
func (c *Client) FetchGradeInfo(ctx context.Context, codes session.Codes, req GradeInfoRequest) (string, error) {
	err := codes.Validate()
	if err != nil {
		return "", err
	}

	requestId := strconv.FormatInt(c.time.Now().UnixMilli(), 10)
	form := req.Form(codes, requestId)

	res, err := c.http.R().
		SetContext(ctx).
		SetHeader("X-Requested-With", "XMLHttpRequest").
		SetFormData(form).
		Post(GradeInfoPath)
	if err != nil {
		c.tel.ReportBroken(report_client_fetch_grade_info, fmt.Errorf("post: %w", err), req.CorNumID, req.Bucket)
		return "", err
	}
	if res.IsError() {
		err := fmt.Errorf("post: unexpected status %s", res.Status())
		c.tel.ReportBroken(report_client_fetch_grade_info, err, req.CorNumID, req.Bucket)
		return "", err
	}
	return UnwrapOutput(res.String()), nil
}
