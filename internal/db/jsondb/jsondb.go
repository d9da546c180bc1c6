// Package jsondb keeps users and URLs in memory and persists them to a JSON
// file when the storage is closed.
package jsondb

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"github.com/patric-chuzhbe/tinyapp/internal/models"
)

type JSONDB struct {
	fileName string
	mutex    sync.RWMutex
	Cache    CacheStruct
}

// CacheStruct is the on-disk layout: users keyed by ID, URLs keyed by short ID.
type CacheStruct struct {
	Users       map[string]models.User `json:"users"`
	URLDatabase models.URLs            `json:"urlDatabase"`
}

// NewCache returns an empty cache with both maps allocated.
func NewCache() CacheStruct {
	return CacheStruct{
		Users:       map[string]models.User{},
		URLDatabase: models.URLs{},
	}
}

func initDBFile(fileName string) error {
	return writeToJSONFile(fileName, NewCache())
}

func writeToJSONFile(fileName string, cache interface{}) error {
	jsonData, err := json.MarshalIndent(cache, "", "\t")
	if err != nil {
		return fmt.Errorf("error marshaling JSON: %w", err)
	}

	file, err := os.OpenFile(fileName, os.O_WRONLY|os.O_TRUNC|os.O_CREATE, 0644)
	if err != nil {
		return fmt.Errorf("error opening file: %w", err)
	}
	defer file.Close()

	if _, err := file.Write(jsonData); err != nil {
		return fmt.Errorf("error writing to file: %w", err)
	}

	return nil
}

func parseJSONFile(fileName string, cache *CacheStruct) error {
	file, err := os.Open(fileName)
	if err != nil {
		return err
	}
	defer file.Close()

	return json.NewDecoder(file).Decode(cache)
}

// New loads the database from fileName, creating the file if it does not exist yet.
func New(fileName string) (*JSONDB, error) {
	db := &JSONDB{
		fileName: fileName,
		Cache:    NewCache(),
	}

	err := parseJSONFile(db.fileName, &db.Cache)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, err
		}
		if err := initDBFile(fileName); err != nil {
			return nil, err
		}
	}

	if db.Cache.Users == nil {
		db.Cache.Users = map[string]models.User{}
	}
	if db.Cache.URLDatabase == nil {
		db.Cache.URLDatabase = models.URLs{}
	}

	return db, nil
}

// NewInMemory returns a JSONDB that is never written to disk.
func NewInMemory() *JSONDB {
	return &JSONDB{Cache: NewCache()}
}

func (db *JSONDB) Ping(ctx context.Context) error {
	return nil
}

// Close flushes the cache to the backing file.
func (db *JSONDB) Close() error {
	if db.fileName == "" {
		return nil
	}

	db.mutex.RLock()
	defer db.mutex.RUnlock()

	return writeToJSONFile(db.fileName, db.Cache)
}

func (db *JSONDB) CreateUser(ctx context.Context, usr *models.User) error {
	db.mutex.Lock()
	defer db.mutex.Unlock()

	db.Cache.Users[usr.ID] = *usr

	return nil
}

func (db *JSONDB) GetUserByID(ctx context.Context, userID string) (*models.User, bool, error) {
	db.mutex.RLock()
	defer db.mutex.RUnlock()

	usr, found := db.Cache.Users[userID]
	if !found {
		return nil, false, nil
	}

	return &usr, true, nil
}

// GetUserByEmail scans every user and returns the first exact match.
func (db *JSONDB) GetUserByEmail(ctx context.Context, email string) (*models.User, bool, error) {
	db.mutex.RLock()
	defer db.mutex.RUnlock()

	for _, usr := range db.Cache.Users {
		if usr.Email == email {
			found := usr
			return &found, true, nil
		}
	}

	return nil, false, nil
}

func (db *JSONDB) GetNumberOfUsers(ctx context.Context) (int64, error) {
	db.mutex.RLock()
	defer db.mutex.RUnlock()

	return int64(len(db.Cache.Users)), nil
}

func (db *JSONDB) GetURL(ctx context.Context, shortID string) (*models.URL, bool, error) {
	db.mutex.RLock()
	defer db.mutex.RUnlock()

	record, found := db.Cache.URLDatabase[shortID]
	if !found {
		return nil, false, nil
	}
	record.ShortID = shortID

	return &record, true, nil
}

// InsertURL stores the record under its short ID, replacing any previous one.
func (db *JSONDB) InsertURL(ctx context.Context, url *models.URL) error {
	db.mutex.Lock()
	defer db.mutex.Unlock()

	db.Cache.URLDatabase[url.ShortID] = *url

	return nil
}

func (db *JSONDB) UpdateLongURL(ctx context.Context, shortID, longURL string) error {
	db.mutex.Lock()
	defer db.mutex.Unlock()

	record, found := db.Cache.URLDatabase[shortID]
	if !found {
		return nil
	}
	record.LongURL = longURL
	db.Cache.URLDatabase[shortID] = record

	return nil
}

func (db *JSONDB) DeleteURL(ctx context.Context, shortID string) error {
	db.mutex.Lock()
	defer db.mutex.Unlock()

	delete(db.Cache.URLDatabase, shortID)

	return nil
}

// ListURLsForOwner returns a fresh map holding only the records owned by ownerID.
func (db *JSONDB) ListURLsForOwner(ctx context.Context, ownerID string) (models.URLs, error) {
	db.mutex.RLock()
	defer db.mutex.RUnlock()

	result := models.URLs{}
	for shortID, record := range db.Cache.URLDatabase {
		if record.OwnerID == ownerID {
			record.ShortID = shortID
			result[shortID] = record
		}
	}

	return result, nil
}

func (db *JSONDB) GetNumberOfURLs(ctx context.Context) (int64, error) {
	db.mutex.RLock()
	defer db.mutex.RUnlock()

	return int64(len(db.Cache.URLDatabase)), nil
}
