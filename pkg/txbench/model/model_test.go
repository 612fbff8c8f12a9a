package model

import (
	"errors"
	"strings"
	"testing"
	"time"

	"cloud.google.com/go/bigquery"
)

func TestProtocol(t *testing.T) {
	if ProtocolStream.Network() != "tcp" || ProtocolDatagram.Network() != "udp" {
		t.Errorf("wrong network names")
	}
	if ProtocolStream.Label() != "TCP per-transaction" ||
		ProtocolDatagram.Label() != "UDP per-transaction" {
		t.Errorf("wrong labels")
	}
	defer func() {
		if r := recover(); r == nil {
			t.Errorf("Network() did not panic on an invalid protocol")
		}
	}()
	Protocol("sctp").Network()
}

func TestFailure(t *testing.T) {
	cause := errors.New("i/o timeout")
	f := Failure{Protocol: ProtocolDatagram, Index: 7, Cause: CauseTimeout, Err: cause}
	if !errors.Is(f, cause) {
		t.Errorf("Failure does not unwrap to its cause")
	}
	if !strings.Contains(f.Error(), "datagram transaction #7 failed (timeout)") {
		t.Errorf("unexpected error string: %s", f.Error())
	}
}

func TestResult_Archive(t *testing.T) {
	r := &Result{
		Protocol:  ProtocolStream,
		Durations: []time.Duration{time.Millisecond, 2 * time.Microsecond},
		Failures: []Failure{
			{Protocol: ProtocolStream, Index: 1, Cause: CauseConnection, Err: errors.New("refused")},
			{Protocol: ProtocolStream, Index: 3, Cause: CauseTimeout},
		},
		Attempted: 4,
	}
	got := r.Archive(Summary{Count: 2})
	if got.Protocol != "stream" || got.Attempted != 4 || got.Summary.Count != 2 {
		t.Errorf("wrong archived fields: %+v", got)
	}
	if len(got.DurationsNs) != 2 || got.DurationsNs[0] != 1000000 || got.DurationsNs[1] != 2000 {
		t.Errorf("wrong durations: %v", got.DurationsNs)
	}
	if got.Failures[0].Message != "refused" || got.Failures[1].Message != "" {
		t.Errorf("wrong failure messages: %+v", got.Failures)
	}
	// The original failures are left untouched.
	if r.Failures[0].Message != "" {
		t.Errorf("Archive() modified the result")
	}
}

func TestArchivalData_Schema(t *testing.T) {
	data := NewArchivalData("id")
	if data.ID != "id" || data.Version == "" {
		t.Errorf("NewArchivalData() = %+v", data)
	}
	sch, err := bigquery.InferSchema(ArchivalData{})
	if err != nil {
		t.Fatalf("cannot infer schema: %v", err)
	}
	names := map[string]bool{}
	for _, f := range sch {
		names[f.Name] = true
	}
	for _, want := range []string{"ID", "Host", "Stream", "Datagram", "StartTime"} {
		if !names[want] {
			t.Errorf("schema is missing field %s", want)
		}
	}
}
