package handlers

import (
	"bytes"
	"mime/multipart"
	"testing"
)

func parseMultipartFiles(t *testing.T, names []string, bodies map[string][]byte) []*multipart.FileHeader {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for _, name := range names {
		fw, err := w.CreateFormFile("files", name)
		if err != nil {
			t.Fatalf("CreateFormFile: %v", err)
		}
		if _, err := fw.Write(bodies[name]); err != nil {
			t.Fatalf("writing part %s: %v", name, err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("closing form: %v", err)
	}

	form, err := multipart.NewReader(&buf, w.Boundary()).ReadForm(1 << 20)
	if err != nil {
		t.Fatalf("ReadForm: %v", err)
	}
	t.Cleanup(func() { form.RemoveAll() })
	return form.File["files"]
}

func TestBuildIncomingFilesSkipsOversizedData(t *testing.T) {
	names := []string{"big.bin", "small.txt"}
	bodies := map[string][]byte{
		"big.bin":   bytes.Repeat([]byte{0x42}, 2048),
		"small.txt": []byte("hello"),
	}
	parts := parseMultipartFiles(t, names, bodies)

	files, err := buildIncomingFiles(parts, "batch note", 1024)
	if err != nil {
		t.Fatalf("buildIncomingFiles: %v", err)
	}
	if len(files) != 2 {
		t.Fatalf("want 2 files, got %d", len(files))
	}

	big := files[0]
	if big.Name != "big.bin" || big.SizeBytes != 2048 {
		t.Fatalf("unexpected oversized entry: %+v", big)
	}
	if len(big.Data) != 0 {
		t.Fatalf("oversized part must not be buffered, got %d bytes", len(big.Data))
	}
	if big.Description != "batch note" {
		t.Fatalf("description not applied: %q", big.Description)
	}

	small := files[1]
	if small.Name != "small.txt" || string(small.Data) != "hello" {
		t.Fatalf("unexpected small entry: %+v", small)
	}
	if small.SizeBytes != int64(len("hello")) {
		t.Fatalf("small SizeBytes = %d", small.SizeBytes)
	}
}
