package archive_test

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/xraph/medquote/archive"
	"github.com/xraph/medquote/id"
	"github.com/xraph/medquote/invoice"
	"github.com/xraph/medquote/types"
)

func testInvoice() *invoice.Invoice {
	issued := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	return &invoice.Invoice{
		ID:           id.NewInvoiceID(),
		Number:       "INV-2025W10-ABCD1234",
		ProviderID:   id.NewProviderID(),
		ProviderName: "Skyline Air",
		Week:         types.Week{Year: 2025, Number: 10},
		Lines: []invoice.Line{{
			EntryID:     id.NewEntryID(),
			BookingID:   id.NewBookingID().String(),
			CompletedAt: issued.Add(-48 * time.Hour),
		}},
		Total:    types.USD(48000),
		Status:   invoice.StatusIssued,
		IssuedAt: issued,
		DueAt:    issued.AddDate(0, 0, 14),
	}
}

func TestPluginArchivesBothArtifacts(t *testing.T) {
	sink := archive.NewMemorySink()
	p := archive.New(sink)
	inv := testInvoice()

	if err := p.OnInvoiceIssued(context.Background(), inv); err != nil {
		t.Fatalf("OnInvoiceIssued: %v", err)
	}
	if sink.Len() != 2 {
		t.Fatalf("artifacts = %d, want 2", sink.Len())
	}

	csvObj, ok := sink.Get(archive.Key(inv, "csv"))
	if !ok {
		t.Fatal("csv artifact missing")
	}
	if csvObj.ContentType != invoice.ContentTypeCSV {
		t.Errorf("csv content type = %q", csvObj.ContentType)
	}
	if !strings.Contains(string(csvObj.Body), inv.Lines[0].BookingID) {
		t.Error("csv does not contain the booking line")
	}

	htmlObj, ok := sink.Get(archive.Key(inv, "html"))
	if !ok {
		t.Fatal("html artifact missing")
	}
	if !strings.Contains(string(htmlObj.Body), inv.Number) {
		t.Error("document does not contain the invoice number")
	}
}

func TestKey(t *testing.T) {
	inv := testInvoice()
	want := inv.ProviderID.String() + "/2025-W10/INV-2025W10-ABCD1234.csv"
	if got := archive.Key(inv, "csv"); got != want {
		t.Fatalf("Key() = %q, want %q", got, want)
	}
}

type fakeS3 struct {
	inputs []*s3.PutObjectInput
	bodies []string
	err    error
}

func (f *fakeS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	b, _ := io.ReadAll(in.Body)
	f.inputs = append(f.inputs, in)
	f.bodies = append(f.bodies, string(b))
	return &s3.PutObjectOutput{}, nil
}

func TestS3SinkPut(t *testing.T) {
	client := &fakeS3{}
	sink := archive.NewS3Sink(client, "invoices", "medquote/")

	if err := sink.Put(context.Background(), "a/b.csv", invoice.ContentTypeCSV, strings.NewReader("x,y")); err != nil {
		t.Fatalf("Put: %v", err)
	}

	in := client.inputs[0]
	if aws.ToString(in.Bucket) != "invoices" {
		t.Errorf("bucket = %q", aws.ToString(in.Bucket))
	}
	if aws.ToString(in.Key) != "medquote/a/b.csv" {
		t.Errorf("key = %q", aws.ToString(in.Key))
	}
	if aws.ToString(in.ContentType) != invoice.ContentTypeCSV {
		t.Errorf("content type = %q", aws.ToString(in.ContentType))
	}
	if client.bodies[0] != "x,y" {
		t.Errorf("body = %q", client.bodies[0])
	}
}

func TestPluginReportsSinkFailure(t *testing.T) {
	boom := errors.New("bucket unavailable")
	p := archive.New(archive.NewS3Sink(&fakeS3{err: boom}, "invoices", ""))

	err := p.OnInvoiceIssued(context.Background(), testInvoice())
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want wrapped sink error", err)
	}
}
