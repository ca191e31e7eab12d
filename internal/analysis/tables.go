package analysis

import "github.com/phobologic/reponav/internal/model"

// BuildTypeTable records which file declares each type name. Files are
// visited in order, so a name declared twice maps to the later file.
func BuildTypeTable(fileInfos []model.FileInfo) model.TypeTable {
	types := make(model.TypeTable)
	for i := range fileInfos {
		fi := &fileInfos[i]
		for j := range fi.Tags {
			tag := &fi.Tags[j]
			if tag.Kind == model.Definition {
				types[tag.Name] = fi.Path
			}
		}
	}
	return types
}

// BuildDependencyTable creates file → file edges from references to types
// declared in another file. Every file becomes a key, in input order, even
// when it has no dependencies.
func BuildDependencyTable(fileInfos []model.FileInfo, types model.TypeTable) *model.DependencyTable {
	deps := model.NewDependencyTable()
	for i := range fileInfos {
		fi := &fileInfos[i]
		deps.AddFile(fi.Path)
		for j := range fi.Tags {
			tag := &fi.Tags[j]
			if tag.Kind != model.Reference {
				continue
			}
			owner, ok := types[tag.Name]
			if !ok || owner == fi.Path {
				continue // unknown type or self-edge
			}
			deps.AddDependency(fi.Path, owner)
		}
	}
	return deps
}
