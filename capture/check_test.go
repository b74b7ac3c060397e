package capture

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestCheckURL_Reachable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	o := testOrchestrator(nil)
	res := o.CheckURL(context.Background(), srv.URL)
	if !res.Accessible || res.Status != 200 {
		t.Fatalf("result: %+v", res)
	}
	if res.Error != "" {
		t.Errorf("unexpected error field: %q", res.Error)
	}
}

func TestCheckURL_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	o := testOrchestrator(nil)
	res := o.CheckURL(context.Background(), srv.URL)
	if res.Accessible {
		t.Fatal("500 reported accessible")
	}
	if res.Status != 500 {
		t.Errorf("status: %d", res.Status)
	}
}

func TestCheckURL_FollowsRedirect(t *testing.T) {
	target := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer target.Close()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, target.URL+"/final", http.StatusFound)
	}))
	defer srv.Close()

	o := testOrchestrator(nil)
	res := o.CheckURL(context.Background(), srv.URL)
	if !res.Accessible {
		t.Fatalf("result: %+v", res)
	}
	if !strings.HasSuffix(res.FinalURL, "/final") {
		t.Errorf("final url: %q", res.FinalURL)
	}
}

func TestCheckURL_HeadRejectedFallsBackToGet(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodHead {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	o := testOrchestrator(nil)
	res := o.CheckURL(context.Background(), srv.URL)
	if !res.Accessible || res.Status != 200 {
		t.Fatalf("result: %+v", res)
	}
}

func TestCheckURL_NeverRaises(t *testing.T) {
	// Unreachable targets and garbage input both come back as structured
	// negative results.
	o := testOrchestrator(nil)

	for _, raw := range []string{
		"http://127.0.0.1:1", // nothing listens there
		"ftp://example.com",
		"not a url",
	} {
		res := o.CheckURL(context.Background(), raw)
		if res.Accessible {
			t.Errorf("%q reported accessible", raw)
		}
		if res.Error == "" {
			t.Errorf("%q: empty error field", raw)
		}
	}
}
