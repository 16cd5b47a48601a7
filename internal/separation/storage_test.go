package separation

import (
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("DiskImageStore", func() {
	var (
		dir    string
		images *DiskImageStore
	)

	BeforeEach(func() {
		dir = GinkgoT().TempDir()
		var err error
		images, err = NewDiskImageStore(dir)
		Expect(err).NotTo(HaveOccurred())
	})

	Describe("SaveImage", func() {
		var (
			itemID      string
			contentType string
			ref         string
			err         error
		)

		BeforeEach(func() {
			itemID = "id-1"
			contentType = "image/jpeg"
		})

		JustBeforeEach(func() {
			ref, err = images.SaveImage(itemID, contentType, []byte("image bytes"))
		})

		When("saving succeeds", func() {
			It("should name the image after the item and content type", func() {
				Expect(err).NotTo(HaveOccurred())
				Expect(ref).To(Equal("id-1.jpg"))
				Expect(filepath.Join(dir, "id-1.jpg")).To(BeAnExistingFile())
			})

			It("should leave no temporary files behind", func() {
				entries, readErr := os.ReadDir(dir)
				Expect(readErr).NotTo(HaveOccurred())
				Expect(entries).To(HaveLen(1))
			})
		})

		When("the content type is unknown", func() {
			BeforeEach(func() {
				contentType = "application/octet-stream"
			})

			It("should use a generic extension", func() {
				Expect(ref).To(Equal("id-1.bin"))
			})
		})

		When("the item id tries to leave the directory", func() {
			BeforeEach(func() {
				itemID = "../../escape"
			})

			It("should keep the image inside the directory", func() {
				Expect(err).NotTo(HaveOccurred())
				Expect(ref).To(Equal("escape.jpg"))
				Expect(filepath.Join(dir, "escape.jpg")).To(BeAnExistingFile())
			})
		})
	})

	Describe("LoadImage", func() {
		When("the image exists", func() {
			BeforeEach(func() {
				_, err := images.SaveImage("id-1", "image/png", []byte("image bytes"))
				Expect(err).NotTo(HaveOccurred())
			})

			It("should return its content", func() {
				data, err := images.LoadImage("id-1.png")
				Expect(err).NotTo(HaveOccurred())
				Expect(string(data)).To(Equal("image bytes"))
			})
		})

		When("the image does not exist", func() {
			It("returns the error", func() {
				_, err := images.LoadImage("nonexistent.png")
				Expect(err).To(MatchError(ContainSubstring("reading image")))
			})
		})

		When("the reference is a path", func() {
			It("refuses it", func() {
				_, err := images.LoadImage("../test.db")
				Expect(err).To(MatchError(ErrInvalidImageRef))
			})
		})
	})

	Describe("RemoveImage", func() {
		When("the image exists", func() {
			BeforeEach(func() {
				_, err := images.SaveImage("id-1", "image/png", []byte("image bytes"))
				Expect(err).NotTo(HaveOccurred())
			})

			It("should remove it", func() {
				Expect(images.RemoveImage("id-1.png")).To(Succeed())
				Expect(filepath.Join(dir, "id-1.png")).NotTo(BeAnExistingFile())
			})
		})

		When("the image does not exist", func() {
			It("returns the error", func() {
				Expect(images.RemoveImage("nonexistent.png")).To(MatchError(ContainSubstring("removing image")))
			})
		})

		When("the reference is empty", func() {
			It("refuses it", func() {
				Expect(images.RemoveImage("")).To(MatchError(ErrInvalidImageRef))
			})
		})
	})
})
