package stage

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// SizeBucket buckets a file by size on disk.
type SizeBucket string

const (
	BucketSmall  SizeBucket = "small"  // < 1 MiB
	BucketMedium SizeBucket = "medium" // < 10 MiB
	BucketLarge  SizeBucket = "large"
)

// ContentClass marks a file as text or binary.
type ContentClass string

const (
	ClassText   ContentClass = "text"
	ClassBinary ContentClass = "binary"
)

// Category names used by the batch stager's priority order.
const (
	CategorySmall   = "small"
	CategoryMedium  = "medium"
	CategoryLarge   = "large"
	CategoryText    = "text"
	CategoryBinary  = "binary"
	CategorySpecial = "special"
)

const (
	smallLimit  = 1 << 20
	mediumLimit = 10 << 20
	sniffBytes  = 1024
)

// FileRecord is one classified candidate file. Immutable once built.
type FileRecord struct {
	Path         string
	SizeBytes    int64
	SizeBucket   SizeBucket
	ContentClass ContentClass
	Special      bool
}

// CategorySet maps category names to ordered file records. Every
// candidate lands in exactly one size bucket and one content class;
// special membership is an extra flag on top.
type CategorySet struct {
	records    []FileRecord
	byCategory map[string][]FileRecord
}

// opaqueExtensions marks formats staged last: executables, installers,
// archives, disk images.
var opaqueExtensions = map[string]bool{
	".exe": true, ".msi": true, ".dll": true, ".so": true, ".dylib": true,
	".dmg": true, ".pkg": true, ".deb": true, ".rpm": true, ".apk": true,
	".iso": true, ".img": true, ".bin": true, ".app": true,
	".zip": true, ".tar": true, ".gz": true, ".tgz": true, ".bz2": true,
	".xz": true, ".7z": true, ".rar": true, ".jar": true, ".war": true,
}

// Classify buckets each candidate path by size, content, and opaque
// format. It is a pure function of the current filesystem state; read
// failures degrade to safe defaults (size 0, binary) instead of
// aborting.
func Classify(root string, paths []string) *CategorySet {
	set := &CategorySet{
		byCategory: make(map[string][]FileRecord),
	}

	for _, path := range paths {
		abs := filepath.Join(root, path)
		record := FileRecord{Path: path}

		if info, err := os.Stat(abs); err == nil && !info.IsDir() {
			record.SizeBytes = info.Size()
		}
		// Deleted and unreadable files stat as size 0 → small.
		switch {
		case record.SizeBytes < smallLimit:
			record.SizeBucket = BucketSmall
		case record.SizeBytes < mediumLimit:
			record.SizeBucket = BucketMedium
		default:
			record.SizeBucket = BucketLarge
		}

		record.ContentClass = sniffContent(abs)
		record.Special = opaqueExtensions[strings.ToLower(filepath.Ext(path))]

		set.records = append(set.records, record)
		set.byCategory[string(record.SizeBucket)] = append(set.byCategory[string(record.SizeBucket)], record)
		set.byCategory[string(record.ContentClass)] = append(set.byCategory[string(record.ContentClass)], record)
		if record.Special {
			set.byCategory[CategorySpecial] = append(set.byCategory[CategorySpecial], record)
		}
	}
	return set
}

// sniffContent reads up to the first 1024 bytes. A zero byte means
// binary; otherwise more than 10% non-printable bytes means binary.
// Unreadable files default to binary (fail-safe).
func sniffContent(abs string) ContentClass {
	f, err := os.Open(abs)
	if err != nil {
		return ClassBinary
	}
	defer f.Close()

	buf := make([]byte, sniffBytes)
	n, err := f.Read(buf)
	if n == 0 {
		if err != nil && !errors.Is(err, io.EOF) {
			return ClassBinary
		}
		return ClassText // empty file
	}
	buf = buf[:n]

	suspect := 0
	for _, b := range buf {
		if b == 0 {
			return ClassBinary
		}
		if b != 0x09 && b != 0x0A && b != 0x0D && (b < 0x20 || b > 0x7E) {
			suspect++
		}
	}
	if suspect*10 > n {
		return ClassBinary
	}
	return ClassText
}

// Count returns the number of candidate files.
func (s *CategorySet) Count() int {
	return len(s.records)
}

// Records returns all classified files in classification order.
func (s *CategorySet) Records() []FileRecord {
	return s.records
}

// Files returns the ordered records for one category.
func (s *CategorySet) Files(category string) []FileRecord {
	return s.byCategory[category]
}
