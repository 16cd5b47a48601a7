package scanning

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func testImage() image.Image {
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	img.Set(1, 1, color.Black)
	return img
}

var _ = Describe("preparePNG", func() {
	var (
		data        []byte
		contentType string
		out         []byte
		err         error
	)

	JustBeforeEach(func() {
		out, err = preparePNG(data, contentType)
	})

	When("the upload is already PNG", func() {
		BeforeEach(func() {
			var buf bytes.Buffer
			Expect(png.Encode(&buf, testImage())).To(Succeed())
			data = buf.Bytes()
			contentType = "image/png"
		})

		It("returns the bytes unchanged", func() {
			Expect(err).NotTo(HaveOccurred())
			Expect(out).To(Equal(data))
		})
	})

	When("the upload is a JPEG without content type", func() {
		BeforeEach(func() {
			var buf bytes.Buffer
			Expect(jpeg.Encode(&buf, testImage(), nil)).To(Succeed())
			data = buf.Bytes()
			contentType = ""
		})

		It("converts it to PNG", func() {
			Expect(err).NotTo(HaveOccurred())
			_, format, decodeErr := image.Decode(bytes.NewReader(out))
			Expect(decodeErr).NotTo(HaveOccurred())
			Expect(format).To(Equal("png"))
		})
	})

	When("the upload is empty", func() {
		BeforeEach(func() {
			data = nil
			contentType = "image/jpeg"
		})

		It("returns an error", func() {
			Expect(err).To(MatchError("empty image"))
		})
	})

	When("the upload is not an image", func() {
		BeforeEach(func() {
			data = []byte("definitely not a picture of a box")
			contentType = "image/jpeg"
		})

		It("returns a decoding error", func() {
			Expect(err).To(HaveOccurred())
		})
	})
})

var _ = Describe("isHEIC", func() {
	It("detects the ftyp brand", func() {
		data := append([]byte{0, 0, 0, 24}, []byte("ftypheic0000")...)
		Expect(isHEIC(data, "")).To(BeTrue())
	})

	It("trusts the declared MIME type", func() {
		Expect(isHEIC(nil, "image/heif")).To(BeTrue())
	})

	It("rejects other data", func() {
		Expect(isHEIC([]byte("\x89PNG\r\n\x1a\n0000"), "image/png")).To(BeFalse())
	})
})

var _ = Describe("sniffMIME", func() {
	It("strips parameters from the declared type", func() {
		Expect(sniffMIME(nil, "Image/JPEG; charset=binary")).To(Equal("image/jpeg"))
	})

	It("sniffs PDFs sent as octet-stream", func() {
		Expect(sniffMIME([]byte("%PDF-1.7\n..."), "application/octet-stream")).To(Equal("application/pdf"))
	})
})
