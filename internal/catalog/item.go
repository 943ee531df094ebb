package catalog

import (
	"animeshelf/internal/model"
)

type rawImage struct {
	ImageURL      string `json:"image_url"`
	SmallImageURL string `json:"small_image_url"`
	LargeImageURL string `json:"large_image_url"`
}

type rawNamed struct {
	MalID int64  `json:"mal_id"`
	Name  string `json:"name"`
}

// rawItem 上游返回的字段，缺失字段保持零值或 nil
type rawItem struct {
	MalID         int64               `json:"mal_id"`
	Title         string              `json:"title"`
	TitleEnglish  *string             `json:"title_english"`
	TitleJapanese *string             `json:"title_japanese"`
	Images        map[string]rawImage `json:"images"`
	Type          *string             `json:"type"`
	Status        *string             `json:"status"`
	Score         *float64            `json:"score"`
	Rank          *int                `json:"rank"`
	Episodes      *int                `json:"episodes"`
	Chapters      *int                `json:"chapters"`
	Year          *int                `json:"year"`
	Synopsis      *string             `json:"synopsis"`
	Genres        []rawNamed          `json:"genres"`
}

// Item 目录条目
type Item struct {
	ID            int64           `json:"id"`
	MediaType     model.MediaType `json:"media_type"`
	Title         string          `json:"title"`
	TitleEnglish  string          `json:"title_english"`
	ImageURL      string          `json:"image_url"`
	SmallImageURL string          `json:"small_image_url"`
	LargeImageURL string          `json:"large_image_url"`
	Format        string          `json:"format"`
	Status        string          `json:"status"`
	StatusText    string          `json:"status_text"`
	Score         float64         `json:"score"`
	Rank          int             `json:"rank"`
	Episodes      int             `json:"episodes"`
	Year          int             `json:"year"`
	Synopsis      string          `json:"synopsis"`
	Genres        []string        `json:"genres"`
}

// ItemFromRaw 把上游字段映射为 Item，对任何输入都返回值
//
// 缺省规则：
//   - Title 为空时依次取英文名、日文名
//   - 图片优先 jpg，其次 webp，都没有则为空串
//   - Score/Rank/Year 缺失为 0
//   - 动画取 episodes，漫画取 chapters，缺失为 0
//   - Genres 缺失为空切片，跳过空名称
//   - StatusText 按 locale 本地化，未知状态原样返回
func ItemFromRaw(raw rawItem, mediaType model.MediaType, locale string) Item {
	item := Item{
		ID:           raw.MalID,
		MediaType:    mediaType,
		Title:        raw.Title,
		TitleEnglish: deref(raw.TitleEnglish),
		Format:       deref(raw.Type),
		Status:       deref(raw.Status),
		Synopsis:     deref(raw.Synopsis),
		Genres:       make([]string, 0, len(raw.Genres)),
	}
	if item.Title == "" {
		item.Title = item.TitleEnglish
	}
	if item.Title == "" {
		item.Title = deref(raw.TitleJapanese)
	}

	for _, key := range []string{"jpg", "webp"} {
		img, ok := raw.Images[key]
		if !ok || img.ImageURL == "" {
			continue
		}
		item.ImageURL = img.ImageURL
		item.SmallImageURL = img.SmallImageURL
		item.LargeImageURL = img.LargeImageURL
		break
	}

	if raw.Score != nil {
		item.Score = *raw.Score
	}
	if raw.Rank != nil {
		item.Rank = *raw.Rank
	}
	if raw.Year != nil {
		item.Year = *raw.Year
	}
	count := raw.Episodes
	if mediaType == model.MediaManga {
		count = raw.Chapters
	}
	if count != nil {
		item.Episodes = *count
	}

	for _, g := range raw.Genres {
		if g.Name != "" {
			item.Genres = append(item.Genres, g.Name)
		}
	}

	item.StatusText = LocalizeStatus(locale, item.Status)
	return item
}

// Snapshot 写入片单和动态时冗余保存的信息
func (i Item) Snapshot() model.MediaSnapshot {
	image := i.LargeImageURL
	if image == "" {
		image = i.ImageURL
	}
	return model.MediaSnapshot{
		Title:    i.Title,
		ImageURL: image,
		Genres:   append([]string(nil), i.Genres...),
	}
}

func deref[T any](p *T) T {
	var zero T
	if p == nil {
		return zero
	}
	return *p
}
