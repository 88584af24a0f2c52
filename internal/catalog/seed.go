package catalog

import "github.com/pbaille/syllabus/internal/domain"

func book(title, link string) SeedResource {
	return SeedResource{Title: title, Kind: domain.KindTextbook, Link: link, Hint: domain.Hint{Icon: "book"}}
}

func empty(labels ...string) []SeedLevel {
	out := make([]SeedLevel, 0, len(labels))
	for _, l := range labels {
		out = append(out, SeedLevel{Label: l})
	}
	return out
}

// Seed returns the bundled catalog. Level order is the declaration order
// shown to users before ordering is applied; several levels have no
// resources yet. The repeated "Pakistan Studies" entries are kept as
// separate entries.
func Seed() []SeedAuthority {
	fbise := SeedAuthority{
		ID:   "fbise",
		Name: "Federal Board",
		Hint: domain.Hint{Icon: "account_balance", Color: "#1565C0"},
	}
	fbise.Levels = append(fbise.Levels, empty("Pre-Primary", "Grade 1", "Grade 2", "Grade 3", "Grade 4", "Grade 5")...)
	fbise.Levels = append(fbise.Levels,
		SeedLevel{Label: "Grade 6", Resources: []SeedResource{
			book("English", "https://fbise.edu.pk/books/grade6/english.pdf"),
			book("Mathematics", "https://fbise.edu.pk/books/grade6/math.pdf"),
			book("General Science", "https://fbise.edu.pk/books/grade6/science.pdf"),
		}},
		SeedLevel{Label: "Grade 7"},
		SeedLevel{Label: "Grade 8"},
		SeedLevel{Label: "Grade 9", Resources: []SeedResource{
			book("Physics", "https://fbise.edu.pk/books/grade9/physics.pdf"),
			book("Chemistry", "https://fbise.edu.pk/books/grade9/chemistry.pdf"),
			book("Biology", "https://fbise.edu.pk/books/grade9/biology.pdf"),
			book("Mathematics", "https://fbise.edu.pk/books/grade9/math.pdf"),
			book("Pakistan Studies", "https://fbise.edu.pk/books/grade9/pakstudies.pdf"),
			book("Pakistan Studies", "https://fbise.edu.pk/books/grade9/pakstudies.pdf"),
		}},
		SeedLevel{Label: "Grade 10", Resources: []SeedResource{
			book("Physics", "https://fbise.edu.pk/books/grade10/physics.pdf"),
			book("Chemistry", "https://fbise.edu.pk/books/grade10/chemistry.pdf"),
			book("Computer Science", "https://fbise.edu.pk/books/grade10/cs.pdf"),
			book("Mathematics", "https://fbise.edu.pk/books/grade10/math.pdf"),
			{Title: "Mathematics Lecture Series", Kind: domain.KindVideo, Link: "https://www.youtube.com/@fbise", Hint: domain.Hint{Icon: "play_circle"}},
			{Title: "Physics Past Paper 2023", Kind: domain.KindExamPaper, Link: "https://fbise.edu.pk/papers/2023/ssc2-physics.pdf", Hint: domain.Hint{Icon: "description"}},
		}},
		SeedLevel{Label: "1st Year", Resources: []SeedResource{
			book("Physics", "https://fbise.edu.pk/books/hssc1/physics.pdf"),
			{Title: "Chemistry Notes", Kind: domain.KindNotes, Author: "Prof. Aslam", Link: "https://notes.example.pk/hssc1-chem", Hint: domain.Hint{Icon: "note"}},
		}},
		SeedLevel{Label: "2nd Year", Resources: []SeedResource{
			book("Mathematics", "https://fbise.edu.pk/books/hssc2/math.pdf"),
			{Title: "English Grammar Guide", Kind: domain.KindDocument, Author: "Ahmed Khan", Link: "", Hint: domain.Hint{Icon: "description"}},
		}},
	)

	punjab := SeedAuthority{
		ID:   "punjab",
		Name: "Punjab Board",
		Hint: domain.Hint{Icon: "school", Color: "#2E7D32"},
		Levels: []SeedLevel{
			{Label: "Kindergarten", Resources: []SeedResource{
				book("My First Alphabet", "https://ptb.punjab.gov.pk/kg/alphabet.pdf"),
			}},
			{Label: "Grade 1", Resources: []SeedResource{
				book("Urdu", "https://ptb.punjab.gov.pk/g1/urdu.pdf"),
				book("English", "https://ptb.punjab.gov.pk/g1/english.pdf"),
			}},
			{Label: "Grade 5"},
			{Label: "Grade 8", Resources: []SeedResource{
				book("Mathematics", "https://ptb.punjab.gov.pk/g8/math.pdf"),
				book("Islamiyat", "https://ptb.punjab.gov.pk/g8/islamiyat.pdf"),
			}},
			{Label: "Grade 9", Resources: []SeedResource{
				book("Biology", "https://ptb.punjab.gov.pk/g9/biology.pdf"),
				book("Pakistan Studies", "https://ptb.punjab.gov.pk/g9/pakstudies.pdf"),
			}},
			{Label: "Grade 10", Resources: []SeedResource{
				book("Chemistry", "https://ptb.punjab.gov.pk/g10/chemistry.pdf"),
				book("Pakistan Studies", "https://ptb.punjab.gov.pk/g10/pakstudies.pdf"),
				book("Pakistan Studies", "https://ptb.punjab.gov.pk/g10/pakstudies-urdu.pdf"),
			}},
			{Label: "Entry Test Prep", Resources: []SeedResource{
				{Title: "MDCAT Practice Set", Kind: domain.KindDocument, Link: "https://uhs.edu.pk/mdcat/practice.pdf", Hint: domain.Hint{Icon: "quiz"}},
			}},
			{Label: "Hifz Program"},
		},
	}

	cambridge := SeedAuthority{
		ID:   "cambridge",
		Name: "Cambridge International",
		Hint: domain.Hint{Icon: "public", Color: "#C62828"},
		Levels: []SeedLevel{
			{Label: "A-Level", Resources: []SeedResource{
				book("Physics 9702", "https://www.cambridgeinternational.org/9702"),
				{Title: "Further Mathematics Notes", Kind: domain.KindNotes, Author: "Dr. Sana Malik", Link: "not a link", Hint: domain.Hint{Icon: "note"}},
			}},
			{Label: "O-Level", Resources: []SeedResource{
				book("Mathematics D 4024", "https://www.cambridgeinternational.org/4024"),
				book("Computer Science 2210", "https://www.cambridgeinternational.org/2210"),
				book("Pakistan Studies 2059", "https://www.cambridgeinternational.org/2059"),
				{Title: "Chemistry 5070 Topical Papers", Kind: domain.KindExamPaper, Link: "https://papers.example.org/5070", Hint: domain.Hint{Icon: "description"}},
			}},
			{Label: "Checkpoint"},
		},
	}

	return []SeedAuthority{fbise, punjab, cambridge}
}
