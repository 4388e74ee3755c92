package domain

type Supplier struct {
	ID          int64  `db:"id" json:"id"`
	Name        string `db:"name" json:"name"`
	ContactName string `db:"contact_name" json:"contact_name"`
	Phone       string `db:"phone" json:"phone"`
	Email       string `db:"email" json:"email"`
	Address     string `db:"address" json:"address"`
	CreatedAt   string `db:"created_at" json:"created_at"`
}

type Customer struct {
	ID        int64  `db:"id" json:"id"`
	Name      string `db:"name" json:"name"`
	Phone     string `db:"phone" json:"phone"`
	Email     string `db:"email" json:"email"`
	Address   string `db:"address" json:"address"`
	CreatedAt string `db:"created_at" json:"created_at"`
}

type Doctor struct {
	ID        int64  `db:"id" json:"id"`
	Name      string `db:"name" json:"name"`
	Specialty string `db:"specialty" json:"specialty"`
	Phone     string `db:"phone" json:"phone"`
	Email     string `db:"email" json:"email"`
	CreatedAt string `db:"created_at" json:"created_at"`
}
