package services

import (
	"context"
	"sync/atomic"
)

var defaultCannedReplies = []string{
	"Terima kasih atas pesan Anda! Saya sedang memproses informasi tersebut. 🤔",
	"Poin yang sangat bagus! Mari kita diskusikan lebih lanjut.",
	"Saya mengerti. Biarkan saya cari solusi terbaik untuk Anda.",
	"Informasi Anda telah diterima. Akan segera saya tindaklanjuti.",
	"Sounds great! Saya akan membantu Anda menyelesaikan hal ini sekarang.",
	"Menarik sekali! Bisa Anda berikan lebih banyak detail untuk saya proses?",
	"Oke, saya akan menganalisis hal tersebut dan memberikan rekomendasi terbaik.",
	"Done! Hasilnya sudah saya siapkan untuk Anda. ✅",
	"Sempurna, langkah selanjutnya akan saya atur otomatis.",
	"Baru saja saya periksa, semuanya berjalan lancar di sisi server. 🟢",
}

// CannedService replies from a fixed list in rotation. It is the completion
// backend for deployments without a provider key.
type CannedService struct {
	replies []string
	next    atomic.Uint64
}

func NewCannedService(replies ...string) *CannedService {
	if len(replies) == 0 {
		replies = defaultCannedReplies
	}
	return &CannedService{replies: replies}
}

func (s *CannedService) Complete(ctx context.Context, _ []ChatMessage) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	i := s.next.Add(1) - 1
	return s.replies[i%uint64(len(s.replies))], nil
}
