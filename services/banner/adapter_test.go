package banner

import (
	"reflect"
	"testing"
)

const shelfPayload = `{
  "ret": 0,
  "data": {
    "CardList": [
      {"type": "pc_top_nav", "children_list": {"list": {"cards": []}}},
      {
        "type": "pc_shelves",
        "children_list": {"list": {"cards": [
          {"id": "c1", "params": {"cid": "mzc001", "title": "繁花", "second_title": "胡歌主演", "label": "剧情| 年代 ||", "image_url": "https://img/1.jpg", "publish_date": "2023-12-27", "desc": "上海滩", "score": "9.1"}},
          {"id": "c2", "params": {"title": "长相思", "sub_title": "第二季", "image_url": "https://img/2.jpg"}},
          {"id": "c3"},
          {"id": "c4", "params": null},
          {"id": "c5", "params": {"title": "", "image_url": "https://img/5.jpg"}},
          {"id": "c6", "params": {"title": "No image"}},
          {"id": "c7", "params": {"title": "品牌广告 限时", "image_url": "https://img/7.jpg"}},
          {"id": 8, "params": {"title": "Numeric id", "image_url": "https://img/8.jpg", "score": 7.5}}
        ]}}
      }
    ]
  }
}`

func TestAdaptShelf(t *testing.T) {
	items := AdaptShelf([]byte(shelfPayload))
	if len(items) != 3 {
		t.Fatalf("expected 3 items, got %d: %+v", len(items), items)
	}

	first := items[0]
	if first.ID != "mzc001" || first.Title != "繁花" || first.Subtitle != "胡歌主演" {
		t.Fatalf("unexpected first item: %+v", first)
	}
	if !reflect.DeepEqual(first.Tags, []string{"剧情", "年代"}) {
		t.Fatalf("unexpected tags: %#v", first.Tags)
	}
	if first.BackdropPath != "https://img/1.jpg" || first.PosterPath != "https://img/1.jpg" {
		t.Fatalf("image must be used for both backdrop and poster: %+v", first)
	}
	if first.VoteAverage != 9.1 || first.ReleaseDate != "2023-12-27" || first.Overview != "上海滩" {
		t.Fatalf("unexpected details: %+v", first)
	}
	if first.GenreIDs != nil {
		t.Fatalf("portal items carry no genre ids: %v", first.GenreIDs)
	}

	if items[1].Subtitle != "第二季" || items[1].ID != "c2" {
		t.Fatalf("expected subtitle fallback and card id, got %+v", items[1])
	}
	if items[2].ID != "8" || items[2].VoteAverage != 7.5 {
		t.Fatalf("unexpected numeric item: %+v", items[2])
	}
}

func TestAdaptShelf_NoShelfOrMalformed(t *testing.T) {
	inputs := []string{
		``,
		`not json`,
		`{"data": {"CardList": [{"type": "pc_top_nav"}]}}`,
		`{"data": {"CardList": "oops"}}`,
		`{"data": null}`,
		`[]`,
	}
	for _, in := range inputs {
		items := AdaptShelf([]byte(in))
		if items == nil || len(items) != 0 {
			t.Fatalf("AdaptShelf(%q) = %v, want empty non-nil list", in, items)
		}
	}
}

func TestAdaptShelf_PromoMarkerAlwaysExcluded(t *testing.T) {
	payload := `{"data":{"CardList":[{"type":"pc_shelves","children_list":{"list":{"cards":[
		{"params":{"title":"广告","image_url":"https://img/a.jpg","label":"热播","score":"9.9"}}
	]}}}]}}`
	if items := AdaptShelf([]byte(payload)); len(items) != 0 {
		t.Fatalf("expected promotional item to be dropped, got %+v", items)
	}
}

const tmdbPayload = `{
  "page": 1,
  "results": [
    {"id": 1, "title": "Dune", "backdrop_path": "/dune.jpg", "poster_path": "/dune-p.jpg", "release_date": "2024-03-01", "overview": "Sand", "vote_average": 8.2, "media_type": "movie", "genre_ids": [878, 12]},
    {"id": 2, "name": "Shogun", "backdrop_path": "/shogun.jpg", "first_air_date": "2024-02-27", "media_type": "tv", "genre_ids": [18]},
    {"id": 3, "name": "Someone", "media_type": "person"},
    {"id": 4, "title": "No Backdrop", "poster_path": "/p.jpg", "media_type": "movie"},
    {"id": 5, "title": "", "backdrop_path": "/b.jpg", "media_type": "movie"}
  ]
}`

func TestAdaptTMDB(t *testing.T) {
	items := AdaptTMDB([]byte(tmdbPayload))
	if len(items) != 2 {
		t.Fatalf("expected 2 items, got %d: %+v", len(items), items)
	}
	dune := items[0]
	if dune.ID != "1" || dune.Title != "Dune" || dune.MediaType != "movie" {
		t.Fatalf("unexpected item: %+v", dune)
	}
	if dune.BackdropPath != "https://image.tmdb.org/t/p/w1280/dune.jpg" {
		t.Fatalf("unexpected backdrop: %s", dune.BackdropPath)
	}
	if dune.PosterPath != "https://image.tmdb.org/t/p/w780/dune-p.jpg" {
		t.Fatalf("unexpected poster: %s", dune.PosterPath)
	}
	if !reflect.DeepEqual(dune.GenreIDs, []int{878, 12}) {
		t.Fatalf("unexpected genres: %v", dune.GenreIDs)
	}
	if dune.Tags != nil {
		t.Fatalf("tmdb items carry no tags: %v", dune.Tags)
	}

	shogun := items[1]
	if shogun.Title != "Shogun" || shogun.ReleaseDate != "2024-02-27" || shogun.PosterPath != "" {
		t.Fatalf("unexpected tv item: %+v", shogun)
	}
}

func TestAdaptTMDB_Malformed(t *testing.T) {
	for _, in := range []string{``, `{`, `{"results": {}}`, `{"results": [{"id": "x"}]}`} {
		items := AdaptTMDB([]byte(in))
		if items == nil || len(items) != 0 {
			t.Fatalf("AdaptTMDB(%q) = %v, want empty non-nil list", in, items)
		}
	}
}
