// Copyright (c) 2026 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package client

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	v1 "github.com/decred/curate/curated/api/v1"
	"github.com/decred/curate/unittest"
	"github.com/decred/curate/util"
)

const (
	testUser = "user"
	testPass = "pass"
)

// newTestClient returns a client for a TLS test server that serves the
// provided handler behind basic auth.
func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()

	s := httptest.NewTLSServer(http.HandlerFunc(
		func(w http.ResponseWriter, r *http.Request) {
			user, pass, ok := r.BasicAuth()
			if !ok || user != testUser || pass != testPass {
				util.RespondWithJSON(w, http.StatusUnauthorized,
					v1.UserErrorReply{
						ErrorCode: v1.ErrorCodeUnauthorized,
					})
				return
			}
			h(w, r)
		}))
	t.Cleanup(s.Close)

	return &Client{
		rpcHost: s.URL,
		rpcUser: testUser,
		rpcPass: testPass,
		http:    s.Client(),
	}
}

func TestNewPost(t *testing.T) {
	want := v1.Post{
		ID:          1,
		Author:      "0x00000000000000000000000000000000000000B1",
		ContentHash: "QmHash",
		Tags:        "go",
	}
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost ||
			r.URL.Path != v1.APIRoute+v1.RouteNewPost {
			t.Errorf("unexpected request %v %v", r.Method, r.URL)
		}
		var np v1.NewPost
		err := json.NewDecoder(r.Body).Decode(&np)
		if err != nil {
			t.Error(err)
		}
		util.RespondWithJSON(w, http.StatusOK, v1.NewPostReply{
			Post: v1.Post{
				ID:          1,
				Author:      np.Caller,
				ContentHash: np.ContentHash,
				Tags:        np.Tags,
			},
		})
	})

	p, err := c.NewPost(context.Background(), want.Author, "QmHash", "go")
	if err != nil {
		t.Fatal(err)
	}
	unittest.DeepEqual(t, *p, want)
}

func TestEvents(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			t.Errorf("got method %v", r.Method)
		}
		q := r.URL.Query()
		if q.Get("from") != "7" || q.Get("limit") != "2" {
			t.Errorf("unexpected query %v", r.URL.RawQuery)
		}
		util.RespondWithJSON(w, http.StatusOK, v1.EventsReply{
			Events: []v1.Event{
				{Seq: 7, Type: v1.EventTypeVoted},
				{Seq: 8, Type: v1.EventTypeTransfer},
			},
		})
	})

	events, err := c.Events(context.Background(), 7, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(events) != 2 || events[0].Seq != 7 || events[1].Seq != 8 {
		t.Fatalf("unexpected events %+v", events)
	}
}

func TestRespError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case v1.APIRoute + v1.RouteClaim:
			util.RespondWithJSON(w, http.StatusBadRequest,
				v1.UserErrorReply{
					ErrorCode: v1.ErrorCodeNothingToClaim,
				})
		default:
			util.RespondWithJSON(w, http.StatusInternalServerError,
				v1.ServerErrorReply{
					ErrorCode: 1700000000,
				})
		}
	})

	_, err := c.Claim(context.Background(), "0x01")
	var re RespError
	if !errors.As(err, &re) {
		t.Fatalf("got %v, want RespError", err)
	}
	if !re.IsUserError() || re.Code() != v1.ErrorCodeNothingToClaim {
		t.Fatalf("unexpected error %+v", re)
	}

	_, err = c.Supply(context.Background())
	if !errors.As(err, &re) {
		t.Fatalf("got %v, want RespError", err)
	}
	if re.IsUserError() || re.ErrorReply.ErrorCode != 1700000000 {
		t.Fatalf("unexpected error %+v", re)
	}

	// Bad credentials
	c.rpcPass = "wrong"
	err = c.AppointCurator(context.Background(), "0x01", "0x02")
	if !errors.As(err, &re) || re.Code() != v1.ErrorCodeUnauthorized {
		t.Fatalf("got %v, want unauthorized", err)
	}
}
