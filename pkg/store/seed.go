package store

import (
	"time"

	"golang.org/x/crypto/bcrypt"
)

func mustDate(s string) time.Time {
	t, _ := time.Parse("2006-01-02", s)
	return t
}

// Seed installs the demo dataset into any collection that is still absent.
// Existing data is left alone, so a restart never wipes real state.
func (c *Collections) Seed() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok, _ := c.kv.Get(KeyUsers); !ok {
		users := make([]User, 0, len(seedAccounts))
		for _, acc := range seedAccounts {
			hash, err := bcrypt.GenerateFromPassword([]byte(acc.password), bcrypt.DefaultCost)
			if err != nil {
				return err
			}
			u := acc.user
			u.PasswordHash = string(hash)
			users = append(users, u)
		}
		if err := c.writeList(KeyUsers, users); err != nil {
			return err
		}
	}

	if _, ok, _ := c.kv.Get(KeyBooks); !ok {
		if err := c.writeList(KeyBooks, seedBooks); err != nil {
			return err
		}
	}

	if _, ok, _ := c.kv.Get(KeyLoans); !ok {
		if err := c.writeList(KeyLoans, []LoanRequest{}); err != nil {
			return err
		}
	}

	return nil
}

var seedAccounts = []struct {
	user     User
	password string
}{
	{User{ID: "1", Name: "Dr. Smith", Email: "admin@unilib.edu", Role: RoleAdmin, Status: UserActive}, "admin"},
	{User{ID: "2", Name: "Alex Johnson", Email: "alex@student.edu", Role: RoleStudent, Status: UserActive}, "alex"},
	{User{ID: "3", Name: "Priya Patel", Email: "priya@student.edu", Role: RoleStudent, Status: UserActive}, "priya"},
	{User{ID: "4", Name: "Rahul Sharma", Email: "rahul@student.edu", Role: RoleStudent, Status: UserActive}, "rahul"},
	{User{ID: "5", Name: "Sarah Williams", Email: "sarah@student.edu", Role: RoleStudent, Status: UserActive}, "sarah"},
	{User{ID: "6", Name: "Michael Chen", Email: "michael@student.edu", Role: RoleStudent, Status: UserActive}, "michael"},
	{User{ID: "7", Name: "Emma Davis", Email: "emma@student.edu", Role: RoleStudent, Status: UserActive}, "emma"},
}

var seedBooks = []Book{
	{
		ID: "1", Title: "Dune", Author: "Frank Herbert", Genre: []string{"Sci-Fi", "Adventure"},
		Description: "An epic science fiction novel set in the distant future amidst a feudal interstellar society.",
		Cover:       "https://covers.openlibrary.org/b/id/8226455-L.jpg", ISBN: "9780441013593",
		TotalCopies: 5, AvailableCopies: 3, PublishYear: 1965, PageCount: 412,
		CreatedAt: mustDate("2024-12-01"), BorrowedCount: 42,
	},
	{
		ID: "2", Title: "The Hobbit", Author: "J.R.R. Tolkien", Genre: []string{"Fantasy", "Adventure"},
		Description: "A fantasy novel about the adventures of hobbit Bilbo Baggins.",
		Cover:       "https://covers.openlibrary.org/b/id/6979865-L.jpg", ISBN: "9780547928227",
		TotalCopies: 7, AvailableCopies: 2, PublishYear: 1937, PageCount: 310,
		CreatedAt: mustDate("2024-11-15"), BorrowedCount: 38,
	},
	{
		ID: "3", Title: "1984", Author: "George Orwell", Genre: []string{"Dystopian", "Political"},
		Description: "A dystopian social science fiction novel and cautionary tale.",
		Cover:       "https://covers.openlibrary.org/b/id/7222246-L.jpg", ISBN: "9780451524935",
		TotalCopies: 6, AvailableCopies: 4, PublishYear: 1949, PageCount: 328,
		CreatedAt: mustDate("2024-12-05"), BorrowedCount: 51,
	},
	{
		ID: "4", Title: "Pride and Prejudice", Author: "Jane Austen", Genre: []string{"Romance", "Classic"},
		Description: "A romantic novel of manners that depicts the emotional development of protagonist Elizabeth Bennet.",
		Cover:       "https://covers.openlibrary.org/b/id/7070189-L.jpg", ISBN: "9780141439518",
		TotalCopies: 8, AvailableCopies: 6, PublishYear: 1813, PageCount: 432,
		CreatedAt: mustDate("2024-11-20"), BorrowedCount: 29,
	},
	{
		ID: "5", Title: "The Great Gatsby", Author: "F. Scott Fitzgerald", Genre: []string{"Classic", "Tragedy"},
		Description: "A novel about the American dream and the roaring twenties.",
		Cover:       "https://covers.openlibrary.org/b/id/8137159-L.jpg", ISBN: "9780743273565",
		TotalCopies: 6, AvailableCopies: 3, PublishYear: 1925, PageCount: 180,
		CreatedAt: mustDate("2024-12-10"), BorrowedCount: 45,
	},
}
