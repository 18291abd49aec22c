package export

import (
	"path/filepath"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("BoltArchive", func() {
	var (
		dbPath  string
		archive *BoltArchive
		now     time.Time
	)

	BeforeEach(func() {
		dbPath = filepath.Join(GinkgoT().TempDir(), "exports.db")
		var err error
		archive, err = NewBoltArchive(dbPath)
		Expect(err).NotTo(HaveOccurred())
		now = time.Date(2024, 3, 20, 12, 0, 0, 0, time.UTC)
		archive.now = func() time.Time { return now }
	})

	AfterEach(func() {
		if archive != nil {
			archive.Close()
		}
	})

	Describe("Save", func() {
		var (
			location string
			err      error
		)

		JustBeforeEach(func() {
			location, err = archive.Save(CSV("a,b\n1,2", "invoice.png"))
		})

		It("should not return an error", func() {
			Expect(err).NotTo(HaveOccurred())
		})

		It("should report the archive location", func() {
			Expect(location).To(Equal(dbPath + "#invoice_extracted_data.csv"))
		})

		It("should store the artifact", func() {
			record, getErr := archive.Get("invoice_extracted_data.csv")
			Expect(getErr).NotTo(HaveOccurred())
			Expect(string(record.Data)).To(Equal("a,b\n1,2"))
			Expect(record.ContentType).To(Equal("text/csv"))
			Expect(record.SavedAt).To(BeTemporally("==", now))
		})

		When("the same name is exported again", func() {
			JustBeforeEach(func() {
				_, err = archive.Save(CSV("a,b\n3,4", "invoice.jpg"))
				Expect(err).NotTo(HaveOccurred())
			})

			It("should keep only the latest export", func() {
				records, listErr := archive.List()
				Expect(listErr).NotTo(HaveOccurred())
				Expect(records).To(HaveLen(1))
				Expect(string(records[0].Data)).To(Equal("a,b\n3,4"))
			})
		})
	})

	Describe("Get", func() {
		When("the export does not exist", func() {
			It("returns the error", func() {
				_, err := archive.Get("missing.csv")
				Expect(err).To(MatchError(ContainSubstring("export not found")))
			})
		})
	})

	Describe("List", func() {
		When("the archive is empty", func() {
			It("should return an empty list", func() {
				records, err := archive.List()
				Expect(err).NotTo(HaveOccurred())
				Expect(records).To(BeEmpty())
			})
		})

		When("several exports exist", func() {
			BeforeEach(func() {
				_, err := archive.Save(CSV("b", "b.png"))
				Expect(err).NotTo(HaveOccurred())
				_, err = archive.Save(CSV("a", "a.png"))
				Expect(err).NotTo(HaveOccurred())
			})

			It("should order them by name", func() {
				records, err := archive.List()
				Expect(err).NotTo(HaveOccurred())
				Expect(records).To(HaveLen(2))
				Expect(records[0].Name).To(Equal("a_extracted_data.csv"))
				Expect(records[1].Name).To(Equal("b_extracted_data.csv"))
			})
		})
	})
})
