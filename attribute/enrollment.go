package attribute

import (
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"speakerid/audio"
)

// DiscoverEnrollment строит список зарегистрированных голосов из дерева
// директорий:
//   - каждая поддиректория корня = один спикер (имя = имя директории),
//     reference файлы — все аудиофайлы внутри, включая вложенные;
//   - аудиофайл прямо в корне, чей stem ещё не занят поддиректорией,
//     становится отдельным спикером с единственным reference.
//
// Пустой результат — ошибка конфигурации, а не мягкий отказ.
func DiscoverEnrollment(root string) ([]EnrollmentEntry, error) {
	dirEntries, err := os.ReadDir(root)
	if err != nil {
		return nil, fmt.Errorf("failed to read enrollment root %s: %w", root, err)
	}

	byName := make(map[string]*EnrollmentEntry)
	var names []string

	addEntry := func(name string) *EnrollmentEntry {
		if e, ok := byName[name]; ok {
			return e
		}
		e := &EnrollmentEntry{SpeakerName: name}
		byName[name] = e
		names = append(names, name)
		return e
	}

	// Сначала поддиректории: их имена имеют приоритет над stem'ами файлов
	for _, de := range dirEntries {
		if !de.IsDir() {
			continue
		}
		speakerDir := filepath.Join(root, de.Name())

		var refs []string
		walkErr := filepath.WalkDir(speakerDir, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if !d.IsDir() && audio.IsAudioFile(path) {
				refs = append(refs, path)
			}
			return nil
		})
		if walkErr != nil {
			log.Printf("[Enroll] failed to walk %s: %v", speakerDir, walkErr)
			continue
		}
		if len(refs) == 0 {
			log.Printf("[Enroll] skipping %s: no audio files", speakerDir)
			continue
		}

		sort.Strings(refs)
		addEntry(de.Name()).ReferencePaths = refs
	}

	// Затем файлы в корне
	for _, de := range dirEntries {
		if de.IsDir() {
			continue
		}
		path := filepath.Join(root, de.Name())
		if !audio.IsAudioFile(path) {
			continue
		}
		stem := strings.TrimSuffix(de.Name(), filepath.Ext(de.Name()))
		if _, claimed := byName[stem]; claimed {
			continue
		}
		addEntry(stem).ReferencePaths = []string{path}
	}

	if len(names) == 0 {
		return nil, fmt.Errorf("no speaker enrollment files found in %s", root)
	}

	sort.Strings(names)
	entries := make([]EnrollmentEntry, 0, len(names))
	for _, name := range names {
		entries = append(entries, *byName[name])
	}

	log.Printf("[Enroll] discovered %d speakers in %s", len(entries), root)
	return entries, nil
}
