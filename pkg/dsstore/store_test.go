package dsstore

import (
	"bytes"
	"encoding/binary"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func testRecords() []Record {
	return []Record{
		{Filename: ".", Code: "vstl", Value: TypeValue("icnv")},
		{Filename: ".", Code: "fwsw", Value: LongValue(192)},
		{Filename: ".", Code: "BKGD", Value: BlobValue([]byte{'D', 'e', 'f', 'B', 0, 0, 0, 0, 0, 0, 0, 0})},
		{Filename: "notes.txt", Code: "cmmt", Value: UstrValue("review before release")},
		{Filename: "notes.txt", Code: "Iloc", Value: BlobValue([]byte{0, 0, 0, 100, 0, 0, 0, 50, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0, 0})},
		{Filename: "Photos", Code: "Iloc", Value: BlobValue([]byte{0, 0, 1, 0, 0, 0, 0, 200, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0, 0})},
		{Filename: "archive.zip", Code: "lg1S", Value: CompValue(1 << 33)},
		{Filename: "archive.zip", Code: "moDD", Value: DutcValue(3_600_000_000)},
		{Filename: "archive.zip", Code: "silo", Value: BoolValue(true)},
	}
}

func TestStoreSaveOpenRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, StoreFileName)

	s1 := New(path)
	for _, rec := range testRecords() {
		s1.SetEntry(rec)
	}
	if err := s1.Save(); err != nil {
		t.Fatalf("Save error: %v", err)
	}

	s2, err := Open(path)
	if err != nil {
		t.Fatalf("Open error: %v", err)
	}
	if !s1.Equal(s2) {
		t.Fatalf("record sets differ after round trip:\n%+v\n%+v", s1.Records(), s2.Records())
	}

	// A second write of the reopened store must parse identically again.
	var buf1, buf2 bytes.Buffer
	if _, err := s1.WriteTo(&buf1); err != nil {
		t.Fatalf("WriteTo error: %v", err)
	}
	if _, err := s2.WriteTo(&buf2); err != nil {
		t.Fatalf("WriteTo error: %v", err)
	}
	s3, err := Decode(path, buf2.Bytes())
	if err != nil {
		t.Fatalf("Decode of rewritten image error: %v", err)
	}
	if !s2.Equal(s3) {
		t.Fatalf("rewritten image decoded differently")
	}
}

func TestSortedEnumeration(t *testing.T) {
	s := New("unused")
	// Insert deliberately out of order.
	s.SetEntry(Record{Filename: "zebra.txt", Code: "Iloc", Value: BlobValue(make([]byte, 16))})
	s.SetEntry(Record{Filename: ".", Code: "vstl", Value: TypeValue("Nlsv")})
	s.SetEntry(Record{Filename: "Alpha.txt", Code: "cmmt", Value: UstrValue("x")})
	s.SetEntry(Record{Filename: ".", Code: "BKGD", Value: BlobValue(make([]byte, 12))})

	names := s.AllFilenames()
	want := []string{".", "Alpha.txt", "zebra.txt"}
	if len(names) != len(want) {
		t.Fatalf("AllFilenames returned %v", names)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Fatalf("AllFilenames order: got %v want %v", names, want)
		}
	}

	codes := s.AllCodes(".")
	if len(codes) != 2 || codes[0] != "BKGD" || codes[1] != "vstl" {
		t.Fatalf("AllCodes order: got %v", codes)
	}
}

func TestEntryLookupAndReplace(t *testing.T) {
	s := New("unused")
	s.SetEntry(Record{Filename: ".", Code: "vstl", Value: TypeValue("icnv")})
	s.SetEntry(Record{Filename: ".", Code: "vstl", Value: TypeValue("Nlsv")})

	if s.Len() != 1 {
		t.Fatalf("expected replacement, have %d records", s.Len())
	}
	rec, ok := s.Entry(".", "vstl")
	if !ok {
		t.Fatalf("Entry not found")
	}
	if rec.Value.Type != "Nlsv" {
		t.Errorf("expected replaced value Nlsv, got %q", rec.Value.Type)
	}
	if _, ok := s.Entry(".", "missing"); ok {
		t.Errorf("Entry for unknown code should be absent")
	}
}

func TestRemoveEntries(t *testing.T) {
	s := New("unused")
	for _, rec := range testRecords() {
		s.SetEntry(rec)
	}
	if !s.RemoveEntry("notes.txt", "cmmt") {
		t.Fatalf("RemoveEntry reported missing record")
	}
	if _, ok := s.Entry("notes.txt", "cmmt"); ok {
		t.Fatalf("record still present after RemoveEntry")
	}
	s.RemoveAllEntries("archive.zip")
	if codes := s.AllCodes("archive.zip"); len(codes) != 0 {
		t.Fatalf("RemoveAllEntries left codes %v", codes)
	}
}

func TestOpenMissingFile(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), StoreFileName))
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestOpenCorruptFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, StoreFileName)

	cases := [][]byte{
		[]byte("short"),
		bytes.Repeat([]byte{0xab}, 64),                      // bad magic
		append([]byte{0, 0, 0, 1, 'B', 'u', 'd', '2'}, make([]byte, 40)...), // wrong second magic
	}
	for i, data := range cases {
		if err := os.WriteFile(path, data, 0o644); err != nil {
			t.Fatalf("WriteFile error: %v", err)
		}
		if _, err := Open(path); !errors.Is(err, ErrCorrupt) {
			t.Fatalf("case %d: expected ErrCorrupt, got %v", i, err)
		}
	}
}

func TestTruncatedContainerIsCorrupt(t *testing.T) {
	s := New("unused")
	for _, rec := range testRecords() {
		s.SetEntry(rec)
	}
	data, err := s.Bytes()
	if err != nil {
		t.Fatalf("Bytes error: %v", err)
	}
	if _, err := Decode("truncated", data[:len(data)/2]); !errors.Is(err, ErrCorrupt) {
		t.Fatalf("expected ErrCorrupt for truncated image, got %v", err)
	}
}

func TestHeaderAdvertisesAllocatedBlockSize(t *testing.T) {
	s := New("unused")
	for _, rec := range testRecords() {
		s.SetEntry(rec)
	}
	data, err := s.Bytes()
	if err != nil {
		t.Fatalf("Bytes error: %v", err)
	}

	offset := binary.BigEndian.Uint32(data[8:12])
	size := binary.BigEndian.Uint32(data[12:16])
	if size == 0 || size&(size-1) != 0 {
		t.Errorf("bookkeeping size %d is not a power of two", size)
	}
	if offset%size != 0 {
		t.Errorf("bookkeeping offset %d not aligned to size %d", offset, size)
	}
	if repeated := binary.BigEndian.Uint32(data[16:20]); repeated != offset {
		t.Errorf("offset fields disagree: %d vs %d", offset, repeated)
	}
	if end := uint64(offset) + 4 + uint64(size); end > uint64(len(data)) {
		t.Errorf("advertised block [%d,%d) exceeds image of %d bytes", offset, end, len(data))
	}
}

func TestSavePreservesUntouchedRecords(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, StoreFileName)

	s1 := New(path)
	for _, rec := range testRecords() {
		s1.SetEntry(rec)
	}
	if err := s1.Save(); err != nil {
		t.Fatalf("Save error: %v", err)
	}

	// Read-modify-write: touch one record, everything else must survive.
	s2, err := Open(path)
	if err != nil {
		t.Fatalf("Open error: %v", err)
	}
	s2.SetEntry(Record{Filename: ".", Code: "vstl", Value: TypeValue("clmv")})
	if err := s2.Save(); err != nil {
		t.Fatalf("Save error: %v", err)
	}

	s3, err := Open(path)
	if err != nil {
		t.Fatalf("Open error: %v", err)
	}
	if rec, ok := s3.Entry(".", "BKGD"); !ok || rec.Value.Kind != KindBlob {
		t.Errorf("legacy BKGD record lost across read-modify-write")
	}
	if rec, ok := s3.Entry("archive.zip", "lg1S"); !ok || rec.Value.Int64 != 1<<33 {
		t.Errorf("comp record lost across read-modify-write")
	}
	if rec, ok := s3.Entry(".", "vstl"); !ok || rec.Value.Type != "clmv" {
		t.Errorf("modified record not persisted")
	}
}

func TestLargeRecordSetRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, StoreFileName)

	s1 := New(path)
	for i := 0; i < 500; i++ {
		name := string(rune('a'+i%26)) + "-file-" + string(rune('0'+i%10)) + string(rune('0'+(i/10)%10)) + string(rune('0'+(i/100)%10)) + ".txt"
		blob := make([]byte, 16)
		blob[3] = byte(i)
		blob[7] = byte(i / 2)
		s1.SetEntry(Record{Filename: name, Code: "Iloc", Value: BlobValue(blob)})
		s1.SetEntry(Record{Filename: name, Code: "cmmt", Value: UstrValue("entry")})
	}
	if err := s1.Save(); err != nil {
		t.Fatalf("Save error: %v", err)
	}
	s2, err := Open(path)
	if err != nil {
		t.Fatalf("Open error: %v", err)
	}
	if !s1.Equal(s2) {
		t.Fatalf("large record set differs after round trip")
	}
}
