package client

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"skyward-backend/lib/chrono"
	"skyward-backend/lib/skyerr"
	"skyward-backend/lib/skyward/session"
	"skyward-backend/lib/telemetry"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

var testCodes = session.Codes{
	Dwd:       "dwd-value",
	Wfaacl:    "wfaacl-value",
	Encses:    "encses-value",
	SessionID: "15%1234",
}

type recordedRequest struct {
	Path   string
	Method string
	Form   map[string]string
}

type portal struct {
	mutex    sync.Mutex
	requests []recordedRequest
	handler  func(w http.ResponseWriter, r *http.Request)
}

func (p *portal) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	err := r.ParseForm()
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	form := map[string]string{}
	for key := range r.PostForm {
		form[key] = r.PostForm.Get(key)
	}
	path := r.URL.Path
	if r.URL.RawQuery != "" {
		path += "?" + r.URL.RawQuery
	}

	p.mutex.Lock()
	p.requests = append(p.requests, recordedRequest{Path: path, Method: r.Method, Form: form})
	p.mutex.Unlock()

	p.handler(w, r)
}

func newTestClient(t testing.TB, handler func(w http.ResponseWriter, r *http.Request)) (*Client, *portal, *telemetry.Recorder) {
	p := &portal{handler: handler}
	server := httptest.NewServer(p)
	t.Cleanup(server.Close)

	tel := telemetry.NewRecorder()
	client, err := New(server.URL+"/scripts/wsisa.dll/WService=wsEAplus/", tel, Options{
		RequestsPerSecond: 100,
		Time:              chrono.FixedTime{Time: time.UnixMilli(1718000000000)},
	})
	require.NoError(t, err)
	return client, p, tel
}

func TestFetchPages(t *testing.T) {
	client, p, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html>" + r.URL.Path + "</html>"))
	})

	gradebook, err := client.FetchGradebook(context.Background(), testCodes)
	require.NoError(t, err)
	require.Contains(t, gradebook, GradebookPage)

	history, err := client.FetchHistory(context.Background(), testCodes)
	require.NoError(t, err)
	require.Contains(t, history, HistoryPage)

	expected := []recordedRequest{
		{
			Path:   "/scripts/wsisa.dll/WService=wsEAplus/" + GradebookPage,
			Method: http.MethodPost,
			Form:   testCodes.Form(),
		},
		{
			Path:   "/scripts/wsisa.dll/WService=wsEAplus/" + HistoryPage,
			Method: http.MethodPost,
			Form:   testCodes.Form(),
		},
	}
	if diff := cmp.Diff(expected, p.requests); diff != "" {
		t.Fatal("unexpected requests (-want +got)\n", diff)
	}
}

func TestFetchInvalidCodes(t *testing.T) {
	client, p, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {})

	_, err := client.FetchGradebook(context.Background(), session.Codes{Dwd: "dwd"})
	require.True(t, errors.Is(err, skyerr.ErrSessionInvalid))
	_, err = client.FetchGradeInfo(context.Background(), session.Codes{}, GradeInfoRequest{})
	require.True(t, errors.Is(err, skyerr.ErrSessionInvalid))
	require.Empty(t, p.requests)
}

func TestFetchErrorStatus(t *testing.T) {
	client, _, tel := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	_, err := client.FetchHistory(context.Background(), testCodes)
	require.Error(t, err)
	require.Equal(t, 1, tel.Count("broken", report_client_fetch))
}

func TestFetchGradeInfo(t *testing.T) {
	client, p, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "XMLHttpRequest", r.Header.Get("X-Requested-With"))
		w.Write([]byte(`<data><output><![CDATA[<div id="grid_stuAssignmentSummaryGrid">ok</div>]]></output></data>`))
	})

	req := GradeInfoRequest{
		StuID:       "12345",
		EntityID:    "001",
		CorNumID:    "4321",
		Track:       "0",
		Section:     "07",
		GbID:        "999",
		Bucket:      "TERM 1",
		SubjectID:   "",
		DialogLevel: "",
	}
	document, err := client.FetchGradeInfo(context.Background(), testCodes, req)
	require.NoError(t, err)
	require.Equal(t, `<div id="grid_stuAssignmentSummaryGrid">ok</div>`, document)

	require.Len(t, p.requests, 1)
	require.Equal(t, "/scripts/wsisa.dll/WService=wsEAplus/"+GradeInfoPath, p.requests[0].Path)

	form := p.requests[0].Form
	require.Equal(t, "viewGradeInfoDialog", form["action"])
	require.Equal(t, "TERM 1", form["bucket"])
	require.Equal(t, "no", form["isEoc"])
	require.Equal(t, "1718000000000", form["requestId"])
	require.Equal(t, "15%1234", form["sessionid"])
	require.Equal(t, "encses-value", form["encses"])
}

func TestUnwrapOutput(t *testing.T) {
	testCases := []struct {
		name     string
		body     string
		expected string
	}{
		{
			name:     "cdata",
			body:     "<data><output><![CDATA[<table>\n<tr></tr>\n</table>]]></output></data>",
			expected: "<table>\n<tr></tr>\n</table>",
		},
		{
			name:     "plain document",
			body:     "<html></html>",
			expected: "<html></html>",
		},
		{
			name:     "empty cdata",
			body:     "<output><![CDATA[]]></output>",
			expected: "<output><![CDATA[]]></output>",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.expected, UnwrapOutput(tc.body))
		})
	}
}
