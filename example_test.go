package docstore_test

import (
	"bytes"
	"context"
	"fmt"

	docstore "github.com/Budskyman/BigData-Praktikum-2025"
)

type Mahasiswa struct {
	NIM     string  `docstore:"nim"`
	Nama    string  `docstore:"nama"`
	Jurusan string  `docstore:"jurusan"`
	IPK     float64 `docstore:"ipk"`
}

func seed(ctx context.Context, c *docstore.Collection) {
	_, _ = c.InsertMany(ctx,
		Mahasiswa{NIM: "12345", Nama: "Andi", Jurusan: "Informatika", IPK: 3.75},
		Mahasiswa{NIM: "12346", Nama: "Budi", Jurusan: "Informatika", IPK: 3.50},
		Mahasiswa{NIM: "12347", Nama: "Citra", Jurusan: "Sistem Informasi", IPK: 3.90},
	)
}

func ExampleOpen() {
	// Every function in the DB receives a context argument. Cancellation
	// stops waiting for locks, but an operation that already started
	// always finishes.
	ctx := context.Background()

	// Without a directory nothing is written to disk. WithDir stores every
	// collection in its own datafile, loaded again on the next Open.
	db, err := docstore.Open(ctx, docstore.WithInMemoryOnly(true))
	if err != nil {
		panic(err)
	}
	defer db.Close(ctx)

	// Collections are created on first use.
	c, _ := db.Collection(ctx, "mahasiswa")
	seed(ctx, c)

	_ = c.CreateIndex(ctx, "nim", docstore.WithUnique(true))
	_, err = c.InsertOne(ctx, Mahasiswa{NIM: "12345", Nama: "Dodi"})
	fmt.Println(err != nil)

	cur, _ := c.Find(ctx, docstore.Query{
		Filter: docstore.Filter{docstore.Gte("ipk", docstore.Number(3.6))},
		Sort:   docstore.Sort{docstore.Desc("ipk")},
	})
	defer cur.Close()
	for cur.Next() {
		var m Mahasiswa
		_ = cur.Scan(ctx, &m)
		fmt.Println(m.Nama, m.IPK)
	}

	// Output:
	// true
	// Citra 3.9
	// Andi 3.75
}

func ExampleCollection_Aggregate() {
	ctx := context.Background()
	db, _ := docstore.Open(ctx, docstore.WithInMemoryOnly(true))
	defer db.Close(ctx)

	c, _ := db.Collection(ctx, "mahasiswa")
	seed(ctx, c)

	res, _ := c.Aggregate(ctx, docstore.Pipeline{
		docstore.Match(docstore.Eq("jurusan", docstore.String("Informatika"))),
		docstore.GroupBy("jurusan",
			docstore.Count("total"),
			docstore.Avg("rata_ipk", "ipk"),
		),
	})
	for _, doc := range res {
		fmt.Println(doc)
	}

	// Output:
	// {"_id":"Informatika","total":2,"rata_ipk":3.625}
}

func ExampleCollection_UpdateOne() {
	ctx := context.Background()
	db, _ := docstore.Open(ctx, docstore.WithInMemoryOnly(true))
	defer db.Close(ctx)

	c, _ := db.Collection(ctx, "mahasiswa")
	seed(ctx, c)

	// Fields of changes replace the stored ones, others are kept.
	doc, _ := c.UpdateOne(ctx,
		docstore.Filter{docstore.Eq("nim", docstore.String("12346"))},
		map[string]any{"ipk": 3.8},
	)
	fmt.Println(doc)

	deleted, _ := c.DeleteOne(ctx, docstore.Filter{docstore.Eq("nim", docstore.String("0"))})
	fmt.Println(deleted)

	// Output:
	// {"nim":"12346","nama":"Budi","jurusan":"Informatika","ipk":3.8}
	// false
}

func ExampleDB_Backup() {
	ctx := context.Background()
	db, _ := docstore.Open(ctx, docstore.WithInMemoryOnly(true))
	defer db.Close(ctx)

	c, _ := db.Collection(ctx, "mahasiswa")
	seed(ctx, c)

	// Backups are compressed with zstd unless WithSnapshotCodec says
	// otherwise. Restore detects the codec.
	var buf bytes.Buffer
	info, _ := db.Backup(ctx, &buf)
	fmt.Println(info.Collections, info.Documents, info.Codec)

	other, _ := docstore.Open(ctx, docstore.WithInMemoryOnly(true))
	defer other.Close(ctx)
	_, _ = other.Restore(ctx, &buf)

	restored, _ := other.Collection(ctx, "mahasiswa")
	n, _ := restored.Count(ctx, nil)
	fmt.Println(n)

	// Output:
	// 1 3 zstd
	// 3
}
