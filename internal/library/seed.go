package library

import (
	"database/sql"
	"fmt"
)

type seedSong struct {
	title    string
	author   string
	sections [][2]string // label, text
}

type seedTranslation struct {
	id, name, abbreviation string
	isDefault              bool
	verses                 []seedVerse
}

type seedVerse struct {
	book           string
	chapter, verse int
	text           string
}

// Starter content, all public domain, so a fresh install has something to
// put on screen.
var seedSongs = []seedSong{
	{
		title:  "Amazing Grace",
		author: "John Newton",
		sections: [][2]string{
			{"Verse 1", "Amazing grace! How sweet the sound\nThat saved a wretch like me!\nI once was lost, but now am found;\nWas blind, but now I see."},
			{"Verse 2", "'Twas grace that taught my heart to fear,\nAnd grace my fears relieved;\nHow precious did that grace appear\nThe hour I first believed."},
			{"Verse 3", "Through many dangers, toils and snares,\nI have already come;\n'Tis grace hath brought me safe thus far,\nAnd grace will lead me home."},
			{"Verse 4", "When we've been there ten thousand years,\nBright shining as the sun,\nWe've no less days to sing God's praise\nThan when we'd first begun."},
		},
	},
	{
		title:  "Be Thou My Vision",
		author: "Traditional Irish, tr. Mary E. Byrne",
		sections: [][2]string{
			{"Verse 1", "Be Thou my Vision, O Lord of my heart;\nNaught be all else to me, save that Thou art.\nThou my best Thought, by day or by night,\nWaking or sleeping, Thy presence my light."},
			{"Verse 2", "Be Thou my Wisdom, and Thou my true Word;\nI ever with Thee and Thou with me, Lord;\nThou my great Father, I Thy true son;\nThou in me dwelling, and I with Thee one."},
			{"Verse 3", "High King of Heaven, my victory won,\nMay I reach Heaven's joys, O bright Heaven's Sun!\nHeart of my own heart, whatever befall,\nStill be my Vision, O Ruler of all."},
		},
	},
	{
		title:  "Holy, Holy, Holy",
		author: "Reginald Heber",
		sections: [][2]string{
			{"Verse 1", "Holy, holy, holy! Lord God Almighty!\nEarly in the morning our song shall rise to Thee;\nHoly, holy, holy, merciful and mighty!\nGod in three Persons, blessed Trinity!"},
			{"Verse 2", "Holy, holy, holy! All the saints adore Thee,\nCasting down their golden crowns around the glassy sea;\nCherubim and seraphim falling down before Thee,\nWhich wert, and art, and evermore shalt be."},
		},
	},
	{
		title:  "Doxology",
		author: "Thomas Ken",
		sections: [][2]string{
			{"Doxology", "Praise God, from whom all blessings flow;\nPraise Him, all creatures here below;\nPraise Him above, ye heavenly host;\nPraise Father, Son, and Holy Ghost."},
		},
	},
}

var seedTranslations = []seedTranslation{
	{
		id: "kjv", name: "King James Version", abbreviation: "KJV", isDefault: true,
		verses: []seedVerse{
			{"Psalms", 23, 1, "The LORD is my shepherd; I shall not want."},
			{"Psalms", 23, 2, "He maketh me to lie down in green pastures: he leadeth me beside the still waters."},
			{"Psalms", 23, 3, "He restoreth my soul: he leadeth me in the paths of righteousness for his name's sake."},
			{"Psalms", 23, 4, "Yea, though I walk through the valley of the shadow of death, I will fear no evil: for thou art with me; thy rod and thy staff they comfort me."},
			{"Psalms", 23, 5, "Thou preparest a table before me in the presence of mine enemies: thou anointest my head with oil; my cup runneth over."},
			{"Psalms", 23, 6, "Surely goodness and mercy shall follow me all the days of my life: and I will dwell in the house of the LORD for ever."},
			{"John", 3, 16, "For God so loved the world, that he gave his only begotten Son, that whosoever believeth in him should not perish, but have everlasting life."},
			{"John", 3, 17, "For God sent not his Son into the world to condemn the world; but that the world through him might be saved."},
			{"1 Corinthians", 13, 4, "Charity suffereth long, and is kind; charity envieth not; charity vaunteth not itself, is not puffed up,"},
			{"1 Corinthians", 13, 13, "And now abideth faith, hope, charity, these three; but the greatest of these is charity."},
		},
	},
	{
		id: "web", name: "World English Bible", abbreviation: "WEB",
		verses: []seedVerse{
			{"Psalms", 23, 1, "Yahweh is my shepherd; I shall lack nothing."},
			{"Psalms", 23, 2, "He makes me lie down in green pastures. He leads me beside still waters."},
			{"Psalms", 23, 3, "He restores my soul. He guides me in the paths of righteousness for his name's sake."},
			{"John", 3, 16, "For God so loved the world, that he gave his one and only Son, that whoever believes in him should not perish, but have eternal life."},
			{"John", 3, 17, "For God didn't send his Son into the world to judge the world, but that the world should be saved through him."},
			{"1 Corinthians", 13, 4, "Love is patient and is kind. Love doesn't envy. Love doesn't brag, is not proud,"},
			{"1 Corinthians", 13, 13, "But now faith, hope, and love remain—these three. The greatest of these is love."},
		},
	},
}

var seedThemes = []struct {
	name      string
	isDefault bool
}{
	{"Default", true},
	{"Dark", false},
	{"High Contrast", false},
}

// seedContent loads the starter songs, translations and themes.
func seedContent(tx *sql.Tx) error {
	for _, song := range seedSongs {
		res, err := tx.Exec("INSERT INTO songs (title, author) VALUES (?, ?)", song.title, song.author)
		if err != nil {
			return fmt.Errorf("seed song %q: %w", song.title, err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return fmt.Errorf("seed song %q: %w", song.title, err)
		}
		for i, sec := range song.sections {
			_, err := tx.Exec(
				"INSERT INTO lyric_sections (song_id, position, label, text) VALUES (?, ?, ?, ?)",
				id, i, sec[0], sec[1],
			)
			if err != nil {
				return fmt.Errorf("seed lyrics for %q: %w", song.title, err)
			}
		}
	}

	for _, tr := range seedTranslations {
		_, err := tx.Exec(
			"INSERT INTO translations (id, name, abbreviation, is_default) VALUES (?, ?, ?, ?)",
			tr.id, tr.name, tr.abbreviation, tr.isDefault,
		)
		if err != nil {
			return fmt.Errorf("seed translation %s: %w", tr.id, err)
		}
		for _, v := range tr.verses {
			_, err := tx.Exec(
				"INSERT INTO verses (translation_id, book, chapter, verse, text) VALUES (?, ?, ?, ?, ?)",
				tr.id, v.book, v.chapter, v.verse, v.text,
			)
			if err != nil {
				return fmt.Errorf("seed %s %s %d:%d: %w", tr.id, v.book, v.chapter, v.verse, err)
			}
		}
	}

	for _, th := range seedThemes {
		if _, err := tx.Exec("INSERT INTO themes (name, is_default) VALUES (?, ?)", th.name, th.isDefault); err != nil {
			return fmt.Errorf("seed theme %s: %w", th.name, err)
		}
	}
	return nil
}
