package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"

	"readsy_backend/internal/util"
	"readsy_backend/pkg/logger"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// AudioNote 上传后的语音笔记
type AudioNote struct {
	URL             string  `json:"url"`
	DurationSeconds float64 `json:"durationSeconds"`
	Codec           string  `json:"codec,omitempty"`
	Size            int64   `json:"size"`
}

// AudioProbe 读取音频时长，默认使用 ffprobe
type AudioProbe func(path string) (*util.AudioInfo, error)

type AudioService struct {
	Storage *StorageService
	Probe   AudioProbe
}

func NewAudioService(storage *StorageService) *AudioService {
	return &AudioService{Storage: storage, Probe: util.GetAudioInfo}
}

// UploadNote 校验类型后落临时文件探测时长，再交给存储后端
func (s *AudioService) UploadNote(ctx context.Context, userID uint, fh *multipart.FileHeader) (*AudioNote, error) {
	if fh.Size > util.MaxAudioNoteBytes {
		return nil, util.ErrFileTooLarge
	}
	if !util.HasAllowedExtension(fh.Filename, util.AllowedAudioExtensions) {
		return nil, util.ErrInvalidFileType
	}

	src, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer src.Close()

	mimeType, err := util.ValidateMimeType(src, util.AllowedAudioMimeTypes)
	if err != nil {
		return nil, err
	}
	if _, err := src.Seek(0, io.SeekStart); err != nil {
		return nil, err
	}

	ext := strings.ToLower(filepath.Ext(fh.Filename))
	tmp, err := os.CreateTemp("", "readsy-audio-*"+ext)
	if err != nil {
		return nil, err
	}
	defer os.Remove(tmp.Name())

	written, err := io.Copy(tmp, src)
	tmp.Close()
	if err != nil {
		return nil, err
	}

	note := &AudioNote{Size: written}
	info, err := s.Probe(tmp.Name())
	switch {
	case errors.Is(err, util.ErrInvalidFileType):
		return nil, err
	case err != nil:
		// ffprobe 不可用时仍允许上传，只是没有时长
		logger.Log.Warn("probe audio note failed", zap.Uint("userID", userID), zap.Error(err))
	default:
		note.DurationSeconds = info.Duration
		note.Codec = info.Codec
	}

	if !util.IsAudio(mimeType) {
		mimeType = util.MimeAudio + strings.TrimPrefix(ext, ".")
	}

	key := fmt.Sprintf("audio-notes/%d/%s%s", userID, uuid.NewString(), ext)
	url, err := s.Storage.UploadFile(ctx, key, tmp.Name(), mimeType)
	if err != nil {
		return nil, err
	}
	note.URL = url
	return note, nil
}
