package file

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/jpeg"
	_ "image/png" // PNG decoding
	"io"
	"math"
	"path"
	"time"

	"github.com/cmlabs-hris/hris-overtime-go/internal/pkg/storage"
	"github.com/cmlabs-hris/hris-overtime-go/internal/pkg/validator"
	"golang.org/x/image/draw"
)

const (
	proofMaxBytes = 150 * 1024
	proofMinBytes = 50 * 1024
	minProofWidth = 480
)

// ProofKind names the side of an overtime the photo proves.
type ProofKind string

const (
	ProofBefore ProofKind = "before"
	ProofAfter  ProofKind = "after"
)

type FileService interface {
	// UploadOvertimeProof compresses the photo to a JPEG of roughly 50KB-150KB and stores it
	// under overtime/{date}/{employeeID}-{kind}-{unix}.jpg. It returns the storage key.
	UploadOvertimeProof(ctx context.Context, employeeID string, date time.Time, file io.Reader, filename string, kind ProofKind) (string, error)

	DeleteFile(ctx context.Context, key string) error
	GetFileURL(key string) string
}

type fileServiceImpl struct {
	storage storage.FileStorage
	now     func() time.Time
}

func NewFileService(storage storage.FileStorage) FileService {
	return &fileServiceImpl{
		storage: storage,
		now:     time.Now,
	}
}

func (s *fileServiceImpl) UploadOvertimeProof(ctx context.Context, employeeID string, date time.Time, file io.Reader, filename string, kind ProofKind) (string, error) {
	if !validator.IsAllowedImage(filename) {
		return "", fmt.Errorf("invalid file type: only jpg, jpeg, png allowed")
	}

	buffer, err := io.ReadAll(file)
	if err != nil {
		return "", fmt.Errorf("failed to read image: %w", err)
	}

	compressed, err := compressImage(buffer, proofMaxBytes, proofMinBytes)
	if err != nil {
		return "", fmt.Errorf("failed to compress image: %w", err)
	}

	name := fmt.Sprintf("%s-%s-%d.jpg", employeeID, kind, s.now().Unix())
	key := path.Join("overtime", date.Format("2006-01-02"), name)

	uploaded, err := s.storage.Upload(ctx, bytes.NewReader(compressed), key, "image/jpeg")
	if err != nil {
		return "", fmt.Errorf("failed to upload overtime proof: %w", err)
	}

	return uploaded, nil
}

func (s *fileServiceImpl) DeleteFile(ctx context.Context, key string) error {
	return s.storage.Delete(ctx, key)
}

func (s *fileServiceImpl) GetFileURL(key string) string {
	return s.storage.URL(key)
}

// ==================== HELPER FUNCTIONS ====================

// compressImage re-encodes buffer as JPEG, lowering quality and then resolution until the
// result is at most maxSize. Images already JPEG and inside [minSize, maxSize] pass through.
func compressImage(buffer []byte, maxSize int, minSize int) ([]byte, error) {
	img, format, err := image.Decode(bytes.NewReader(buffer))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}

	if format == "jpeg" && len(buffer) <= maxSize && len(buffer) >= minSize {
		return buffer, nil
	}

	var compressed []byte
	for quality := 85; quality >= 50; quality -= 5 {
		compressed, err = encodeJPEG(img, quality)
		if err != nil {
			return nil, err
		}
		if len(compressed) <= maxSize {
			return compressed, nil
		}
	}

	// Still too large: shrink toward the middle of the range, keeping the aspect ratio.
	bounds := img.Bounds()
	for attempt := 0; attempt < 4 && len(compressed) > maxSize; attempt++ {
		ratio := math.Sqrt(float64(maxSize+minSize) / 2 / float64(len(compressed)))
		width := int(float64(bounds.Dx()) * ratio)
		if width < minProofWidth {
			width = minProofWidth
		}
		height := int(float64(bounds.Dy()) * float64(width) / float64(bounds.Dx()))
		if height < 1 {
			height = 1
		}

		img = resizeImage(img, width, height)
		bounds = img.Bounds()

		compressed, err = encodeJPEG(img, 70)
		if err != nil {
			return nil, err
		}
		if width == minProofWidth {
			break
		}
	}

	return compressed, nil
}

func encodeJPEG(img image.Image, quality int) ([]byte, error) {
	buf := new(bytes.Buffer)
	if err := jpeg.Encode(buf, img, &jpeg.Options{Quality: quality}); err != nil {
		return nil, fmt.Errorf("failed to encode JPEG: %w", err)
	}
	return buf.Bytes(), nil
}

// resizeImage scales src with CatmullRom interpolation.
func resizeImage(src image.Image, width, height int) image.Image {
	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Over, nil)
	return dst
}
