package util

const (
	DateFormat   = "2006-01-02"
	TimeFormat   = "2006-01-02 15:04:05"
	SeasonFormat = "2006-01"
)

const (
	StorageLocal = "local"
	StorageMinio = "minio"
	StorageOSS   = "oss"
)

// 文件上传相关常量
const (
	MimeAudio       = "audio/"
	MimeOctetStream = "application/octet-stream"
	// http.DetectContentType 对 webm 音频返回 video/webm
	MimeWebm = "video/webm"
	MimeOgg  = "application/ogg"
	// m4a 容器被识别为 video/mp4，是否含音轨由 ffprobe 判断
	MimeMp4 = "video/mp4"
)

const MaxAudioNoteBytes = 20 << 20

var (
	AllowedAudioExtensions = []string{".mp3", ".m4a", ".aac", ".wav", ".ogg", ".oga", ".webm"}
	AllowedAudioMimeTypes  = []string{MimeAudio, MimeWebm, MimeOgg, MimeMp4}
)

const (
	DefaultPage  = 1
	DefaultLimit = 20
	MaxLimit     = 100
)
