package separation

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"regexp"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/onsi/gomega/ghttp"

	"github.com/zombor/cargo-match/internal/extraction"
	"github.com/zombor/cargo-match/internal/reconcile"
	"github.com/zombor/cargo-match/internal/scanning"
)

// fixtureScanner returns the OCR text registered for each image payload
type fixtureScanner struct {
	texts map[string]string
}

func (f *fixtureScanner) Scan(ctx context.Context, imageData []byte, contentType string) (*scanning.Document, error) {
	text, ok := f.texts[string(imageData)]
	if !ok {
		return nil, errors.New("unreadable image")
	}
	return &scanning.Document{RawText: text}, nil
}

func (f *fixtureScanner) Close() error {
	return nil
}

var _ = Describe("Integration", func() {
	var (
		db       *BoltDB
		service  *Service
		ghServer *ghttp.Server
	)

	BeforeEach(func() {
		tempDir := GinkgoT().TempDir()

		var err error
		db, err = NewBoltDB(filepath.Join(tempDir, "test.db"))
		Expect(err).NotTo(HaveOccurred())

		store, err := NewDiskImageStore(filepath.Join(tempDir, "scans"))
		Expect(err).NotTo(HaveOccurred())

		scanner := &fixtureScanner{texts: map[string]string{
			"box-1": "SHOPEE XPRESS\nREM 998877\nVOL 1/3",
			"box-2": "SHOPEE XPRESS\nREM 998877\nVOL 2/3",
			"note-1": `DESTINATÁRIO: Maria Oliveira
ENDEREÇO: Av Brasil, 900
BAIRRO: Jardim Girassol
AMER1CANA/SP
CEP 13465-770
REMESSA: 998877`,
			"box-3": "PED 55555\nCEP 13010-000",
		}}

		service = NewService(db, scanner, store, extraction.NewExtractor(nil))
		server := NewServer(service, BasicAuth{}, reconcile.Destination{Name: "João Silva", Kind: reconcile.DestinationDriver})

		ghServer = ghttp.NewServer()
		for _, method := range []string{"GET", "POST", "DELETE"} {
			ghServer.RouteToHandler(method, regexp.MustCompile(`^/api/`), server.ServeHTTP)
		}
	})

	AfterEach(func() {
		service.Wait()
		ghServer.Close()
		db.Close()
	})

	upload := func(kind, payload string) {
		body := &bytes.Buffer{}
		writer := multipart.NewWriter(body)
		Expect(writer.WriteField("kind", kind)).To(Succeed())
		part, err := writer.CreateFormFile("file", payload+".jpg")
		Expect(err).NotTo(HaveOccurred())
		part.Write([]byte(payload))
		Expect(writer.Close()).To(Succeed())

		resp, err := http.Post(ghServer.URL()+"/api/scans", writer.FormDataContentType(), body)
		Expect(err).NotTo(HaveOccurred())
		defer resp.Body.Close()
		Expect(resp.StatusCode).To(Equal(http.StatusAccepted))
	}

	It("reconciles uploaded scans into a stored run", func() {
		upload("box", "box-1")
		upload("box", "box-2")
		upload("box", "box-3")

		noteJSON, _ := json.Marshal(map[string]string{
			"kind":         "note",
			"image":        base64.StdEncoding.EncodeToString([]byte("note-1")),
			"content_type": "image/jpeg",
		})
		resp, err := http.Post(ghServer.URL()+"/api/scans", "application/json", bytes.NewReader(noteJSON))
		Expect(err).NotTo(HaveOccurred())
		resp.Body.Close()
		Expect(resp.StatusCode).To(Equal(http.StatusAccepted))

		service.Wait()

		resp, err = http.Get(ghServer.URL() + "/api/scans")
		Expect(err).NotTo(HaveOccurred())
		var items []map[string]any
		Expect(json.NewDecoder(resp.Body).Decode(&items)).To(Succeed())
		resp.Body.Close()
		Expect(items).To(HaveLen(4))
		for _, it := range items {
			Expect(it["status"]).To(Equal("ready"))
		}

		resp, err = http.Post(ghServer.URL()+"/api/runs", "application/json", nil)
		Expect(err).NotTo(HaveOccurred())
		Expect(resp.StatusCode).To(Equal(http.StatusCreated))
		var run Run
		Expect(json.NewDecoder(resp.Body).Decode(&run)).To(Succeed())
		resp.Body.Close()

		Expect(run.Result.Bundles).To(HaveLen(1))
		bundle := run.Result.Bundles[0]
		Expect(bundle.Boxes).To(HaveLen(2))
		Expect(bundle.MatchedBy).To(Equal([]reconcile.Criterion{reconcile.ByShipmentID}))
		Expect(bundle.ExpectedVolumeCount).To(Equal(3))
		Expect(bundle.MissingBoxCount).To(Equal(1))
		Expect(bundle.Tag).To(Equal("MAR-770-02"))
		Expect(run.Result.UnmatchedBoxes).To(HaveLen(1))
		Expect(run.Result.UnmatchedNotes).To(BeEmpty())

		note, ok := bundle.Note.Note()
		Expect(ok).To(BeTrue())
		Expect(note.City).To(Equal("AMERICANA"))
		Expect(note.Confidence).To(Equal(1.0))

		resp, err = http.Get(ghServer.URL() + "/api/runs/" + run.ID + "/manifest")
		Expect(err).NotTo(HaveOccurred())
		text, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		Expect(string(text)).To(ContainSubstring("📦 1. TAG: MAR-770-02"))
		Expect(string(text)).To(ContainSubstring("   Match: REM | Score: 50pts"))
		Expect(string(text)).To(ContainSubstring("   Americana/SP - CEP: 13465-770"))
		Expect(string(text)).To(ContainSubstring("   Volumes: 2/3 (faltam 1)"))
		Expect(string(text)).To(ContainSubstring("   • PED 55555"))
	})

	It("marks unreadable images as failed without affecting others", func() {
		upload("box", "box-1")
		upload("note", "blurry")
		service.Wait()

		items, err := service.ListItems()
		Expect(err).NotTo(HaveOccurred())
		Expect(items).To(HaveLen(2))
		Expect(string(items[0].Status())).To(Equal("ready"))
		Expect(string(items[1].Status())).To(Equal("error"))
		Expect(items[1].Failure()).To(ContainSubstring("unreadable image"))
	})
})
