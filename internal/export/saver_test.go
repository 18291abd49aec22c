package export

import (
	"errors"
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

type mockSaver struct {
	saved   []Artifact
	saveErr error
	where   string
}

func (m *mockSaver) Save(artifact Artifact) (string, error) {
	if m.saveErr != nil {
		return "", m.saveErr
	}
	m.saved = append(m.saved, artifact)
	return m.where, nil
}

var _ = Describe("DirSaver", func() {
	var (
		tmpDir string
		saver  *DirSaver
	)

	BeforeEach(func() {
		tmpDir = filepath.Join(GinkgoT().TempDir(), "exports")
		var err error
		saver, err = NewDirSaver(tmpDir)
		Expect(err).NotTo(HaveOccurred())
	})

	It("should create the directory", func() {
		Expect(tmpDir).To(BeADirectory())
	})

	Describe("Save", func() {
		var (
			artifact Artifact
			path     string
			err      error
		)

		BeforeEach(func() {
			artifact = CSV("a,b\n1,2", "invoice.png")
		})

		JustBeforeEach(func() {
			path, err = saver.Save(artifact)
		})

		It("should not return an error", func() {
			Expect(err).NotTo(HaveOccurred())
		})

		It("should write the file under the export name", func() {
			Expect(path).To(Equal(filepath.Join(tmpDir, "invoice_extracted_data.csv")))
			data, readErr := os.ReadFile(path)
			Expect(readErr).NotTo(HaveOccurred())
			Expect(string(data)).To(Equal("a,b\n1,2"))
		})

		When("the name contains directories", func() {
			BeforeEach(func() {
				artifact = CSV("a\n1", "../../etc/invoice.png")
			})

			It("should stay inside the export directory", func() {
				Expect(filepath.Dir(path)).To(Equal(tmpDir))
			})
		})
	})
})

var _ = Describe("MultiSaver", func() {
	var (
		first  *mockSaver
		second *mockSaver
		multi  MultiSaver
	)

	BeforeEach(func() {
		first = &mockSaver{where: "first"}
		second = &mockSaver{where: "second"}
		multi = MultiSaver{first, second}
	})

	It("should save to every saver and report the first location", func() {
		location, err := multi.Save(CSV("a\n1", "x.png"))
		Expect(err).NotTo(HaveOccurred())
		Expect(location).To(Equal("first"))
		Expect(first.saved).To(HaveLen(1))
		Expect(second.saved).To(HaveLen(1))
	})

	It("should stop at the first failure", func() {
		first.saveErr = errors.New("disk full")
		_, err := multi.Save(CSV("a\n1", "x.png"))
		Expect(err).To(MatchError("disk full"))
		Expect(second.saved).To(BeEmpty())
	})
})
