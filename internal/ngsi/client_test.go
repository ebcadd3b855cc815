package ngsi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/terrasense/agriops/internal/types"
)

func TestListEntities(t *testing.T) {
	var gotTenant, gotAccept string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotTenant = r.Header.Get("NGSILD-Tenant")
		gotAccept = r.Header.Get("Accept")
		if r.URL.Path != "/ngsi-ld/v1/entities" {
			t.Errorf("path = %s", r.URL.Path)
		}
		json.NewEncoder(w).Encode([]Entity{
			{ID: "P1", Type: "AgriParcel", Name: &Property{Value: "North Field"}},
			{ID: "S1", Type: "AgriSensor", RefParcel: NewRelationship("P1")},
			{ID: "S2", Type: "AgriSensor", RefParcel: NewRelationship("P2")},
		})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "farmtenant")
	got, err := c.ListEntities(context.Background(), types.ListFilter{ParentID: "P1"})
	if err != nil {
		t.Fatalf("ListEntities: %v", err)
	}

	if gotTenant != "farmtenant" {
		t.Errorf("NGSILD-Tenant = %q, want farmtenant", gotTenant)
	}
	if gotAccept != "application/ld+json" {
		t.Errorf("Accept = %q", gotAccept)
	}
	// Parent filtering is client-side.
	if len(got) != 1 || got[0].ID != "S1" {
		t.Fatalf("got = %+v, want only S1", got)
	}
}

func TestListEntities_PagesThroughLargeCatalogs(t *testing.T) {
	// 1200 sensors under one parcel: more than a single broker page.
	const total = 1200
	catalog := make([]Entity, total)
	for i := range catalog {
		catalog[i] = Entity{
			ID:        fmt.Sprintf("urn:ngsi-ld:AgriSensor:S%04d", i),
			Type:      "AgriSensor",
			RefParcel: NewRelationship("P1"),
		}
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
		offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
		if limit <= 0 {
			t.Errorf("limit = %d, want positive", limit)
		}
		end := offset + limit
		if offset > total {
			offset = total
		}
		if end > total {
			end = total
		}
		json.NewEncoder(w).Encode(catalog[offset:end])
	}))
	defer srv.Close()

	got, err := NewClient(srv.URL, "").ListEntities(context.Background(), types.ListFilter{ParentID: "P1"})
	if err != nil {
		t.Fatalf("ListEntities: %v", err)
	}
	if len(got) != total {
		t.Fatalf("got %d entities, want %d (dependents beyond the first page must not vanish)", len(got), total)
	}
	seen := make(map[string]bool, len(got))
	for _, e := range got {
		if seen[e.ID] {
			t.Fatalf("entity %s returned twice", e.ID)
		}
		seen[e.ID] = true
	}
}

func TestGetEntity(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/ngsi-ld/v1/entities/urn:ngsi-ld:AgriSensor:S1" {
			t.Errorf("path = %s", r.URL.Path)
		}
		json.NewEncoder(w).Encode(Entity{
			ID:      "urn:ngsi-ld:AgriSensor:S1",
			Type:    "AgriSensor",
			RefFarm: NewRelationship("F1"),
		})
	}))
	defer srv.Close()

	got, err := NewClient(srv.URL, "").GetEntity(context.Background(), "urn:ngsi-ld:AgriSensor:S1")
	if err != nil {
		t.Fatalf("GetEntity: %v", err)
	}
	if got.ParentID != "F1" {
		t.Errorf("ParentID = %s, want F1", got.ParentID)
	}
}

func TestPatchAttributes_SendsFragment(t *testing.T) {
	var gotBody map[string]json.RawMessage
	var gotMethod string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Errorf("decoding patch body: %v", err)
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	frag := AttributeFragment{
		RefAgriParcel: nil,
		RefAgriFarm:   NewRelationship("F1"),
	}
	err := NewClient(srv.URL, "").PatchAttributes(context.Background(), "AgriSensor", "S1", frag)
	if err != nil {
		t.Fatalf("PatchAttributes: %v", err)
	}
	if gotMethod != http.MethodPatch {
		t.Errorf("method = %s, want PATCH", gotMethod)
	}
	if string(gotBody[RefAgriParcel]) != "null" {
		t.Errorf("%s = %s, want null", RefAgriParcel, gotBody[RefAgriParcel])
	}
}

func TestDo_RetriesServerErrors(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		json.NewEncoder(w).Encode([]Entity{})
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL, "").ListEntities(context.Background(), types.ListFilter{})
	if err != nil {
		t.Fatalf("ListEntities after retries: %v", err)
	}
	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
}

func TestDo_ClientErrorsAreDefinitive(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusNotFound)
		json.NewEncoder(w).Encode(map[string]string{
			"title":  "Not Found",
			"detail": "entity does not exist",
		})
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL, "").GetEntity(context.Background(), "nope")
	var be *BrokerError
	if !errors.As(err, &be) {
		t.Fatalf("err = %v, want BrokerError", err)
	}
	if be.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want 404", be.StatusCode)
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1 (4xx must not retry)", calls)
	}
}

func TestDo_ExhaustedRetriesReturnLastError(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	err := NewClient(srv.URL, "").DeleteEntity(context.Background(), "AgriSensor", "S1")
	var be *BrokerError
	if !errors.As(err, &be) || be.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("err = %v, want BrokerError 503", err)
	}
	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
}
