package log

import (
	"os"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Logger", func() {
	When("hostname file is provided", func() {
		var (
			tmpFile *os.File
			err     error
		)
		JustBeforeEach(func() {
			tmpFile, err = os.CreateTemp("", "prefix")
			Expect(err).Should(Succeed())
			_, err = tmpFile.WriteString("Test-Hostname")
			Expect(err).Should(Succeed())
			DeferCleanup(func() { os.Remove(tmpFile.Name()) })
		})
		It("should use it", func() {
			hostname, err := getHostname(tmpFile.Name())
			Expect(err).Should(Succeed())
			Expect(hostname).Should(Equal("test-hostname"))
		})
	})
	When("hostname file is not provided", func() {
		It("falls back to the OS hostname", func() {
			hostname1, err := os.Hostname()
			Expect(err).Should(Succeed())

			hostname2, err := getHostname("/nonexistent-hostname-file")
			Expect(err).Should(Succeed())
			Expect(hostname2).Should(Equal(strings.ToLower(hostname1)))
		})
	})
	When("format is configured", func() {
		It("stringifies known formats", func() {
			Expect(FormatTypeText.String()).Should(Equal("text"))
			Expect(FormatTypeJson.String()).Should(Equal("json"))
		})
	})
	When("level is configured", func() {
		It("stringifies known levels", func() {
			Expect(LevelDebug.String()).Should(Equal("debug"))
			Expect(LevelFatal.String()).Should(Equal("fatal"))
		})
	})
})
