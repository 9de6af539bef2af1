package kinds

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestExtractURLsTrimsTrailingPunctuation(t *testing.T) {
	urls := ExtractURLs("watch this https://youtu.be/abc) now")
	require.Equal(t, []string{"https://youtu.be/abc"}, urls)
	require.Equal(t, KindYoutube, ClassifyURL(urls[0]))
}

func TestClassifyURL(t *testing.T) {
	tests := []struct {
		name string
		url  string
		want Kind
	}{
		{"youtube watch", "https://www.youtube.com/watch?v=abc", KindYoutube},
		{"youtube short host", "https://youtu.be/abc", KindYoutube},
		{"youtube mobile", "https://m.youtube.com/watch?v=abc", KindYoutube},
		{"instagram reel", "https://www.instagram.com/reel/ZZZ999/", KindInstagramReel},
		{"instagram reels path", "https://www.instagram.com/reels/ZZZ999/", KindInstagramReel},
		{"instagram post", "https://www.instagram.com/p/ABC123/", KindInstagramPost},
		{"instagram tv", "https://www.instagram.com/tv/ABC123/", KindInstagramPost},
		{"instagr.am short host", "https://instagr.am/p/ABC123/", KindInstagramPost},
		{"threads post", "https://www.threads.net/@alice/post/ABCDEF", KindThreads},
		{"threads profile without post", "https://www.threads.net/@alice", KindOtherLink},
		{"generic link", "https://example.com/blog/post", KindOtherLink},
		{"custom scheme", "kakaotalk://in-chat/123", KindPlainText},
		{"empty", "", KindPlainText},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, ClassifyURL(tt.url))
		})
	}
}

func TestComputeMultiLabel(t *testing.T) {
	result := Compute(Input{
		SourceURL:   "kakaotalk://in-chat/123",
		ContentFull: "shared video https://www.youtube.com/watch?v=abc",
	})
	require.Equal(t, KindPlainText, result.PrimaryKind)
	require.Equal(t, []Kind{KindPlainText, KindYoutube}, result.Kinds)
}

func TestComputeSingleKindContainsPrimary(t *testing.T) {
	result := Compute(Input{SourceURL: "https://www.instagram.com/reel/ZZZ999/"})
	require.Equal(t, KindInstagramReel, result.PrimaryKind)
	require.Equal(t, []Kind{KindInstagramReel}, result.Kinds)
}

func TestComputeStableKindOrder(t *testing.T) {
	result := Compute(Input{
		SourceURL:   "kakaotalk://in-chat/999",
		ContentFull: "https://example.com/path then https://www.youtube.com/watch?v=abc",
	})
	require.Equal(t, []Kind{KindPlainText, KindYoutube, KindOtherLink}, result.Kinds)
}

func TestComputeDeterministic(t *testing.T) {
	in := Input{
		SourceURL:    "https://example.com/a",
		ContentFull:  "see https://youtu.be/x and https://www.threads.net/@a/post/1",
		SummaryShort: "short",
		SummaryLong:  "long",
	}
	first := Compute(in)
	for i := 0; i < 5; i++ {
		require.Equal(t, first, Compute(in))
	}
}

func TestValid(t *testing.T) {
	require.True(t, Valid("youtube"))
	require.True(t, Valid("plain_text"))
	require.False(t, Valid("not_a_kind"))
}
