package tabix

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strconv"

	"github.com/biogo/hts/bgzf"
	"go.uber.org/zap"
)

// DefaultCommand is the tabix executable looked up on PATH.
const DefaultCommand = "tabix"

// written is the layout of the files produced here: sequence name first,
// 1-based position second, "#" for the header line.
var written = layout{name: 0, begin: 1, end: 1, meta: "#"}

// Indexer compresses a plain text file with BGZF and indexes it by running
// the tabix command. The plain file is removed on success.
//
// biogo's tabix.Index can be serialized but Add never fills its name map,
// so every record would register a new reference; the binary is used instead.
type Indexer struct {
	// Command defaults to DefaultCommand.
	Command string
	// Writers is the number of concurrent BGZF compressors; zero means one.
	Writers int
	Logger  *zap.Logger
}

// Index writes path+".gz", indexes it and returns its path.
func (x Indexer) Index(path string) (string, error) {
	logger := x.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	command := x.Command
	if command == "" {
		command = DefaultCommand
	}
	bin, err := exec.LookPath(command)
	if err != nil {
		return "", fmt.Errorf("find %s: %w", command, err)
	}

	out := path + ".gz"
	if err := x.Compress(path, out); err != nil {
		return "", err
	}
	if err := os.Remove(path); err != nil {
		return "", fmt.Errorf("remove uncompressed output: %w", err)
	}

	var stderr bytes.Buffer
	cmd := exec.Command(bin, "-f",
		"-s", strconv.Itoa(written.name+1),
		"-b", strconv.Itoa(written.begin+1),
		"-e", strconv.Itoa(written.end+1),
		"-c", written.meta,
		out)
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("run %s: %w: %s", command, err, bytes.TrimSpace(stderr.Bytes()))
	}
	logger.Info("indexed output", zap.String("path", out), zap.String("index", out+Extension))
	return out, nil
}

// Compress writes src to dst as BGZF.
func (x Indexer) Compress(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("open file to compress: %w", err)
	}
	defer in.Close()

	f, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("create compressed file: %w", err)
	}
	wc := x.Writers
	if wc <= 0 {
		wc = 1
	}
	bw := bgzf.NewWriter(f, wc)
	if _, err := io.Copy(bw, in); err != nil {
		bw.Close()
		f.Close()
		return fmt.Errorf("compress %s: %w", src, err)
	}
	if err := bw.Close(); err != nil {
		f.Close()
		return fmt.Errorf("finish bgzf stream: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close compressed file: %w", err)
	}
	return nil
}
