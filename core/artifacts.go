package core

// ArtifactRole is a logical category of expected file inside a variant directory.
type ArtifactRole string

const (
	RoleKernelConfig ArtifactRole = "kernel_config"
	RoleBuildLog     ArtifactRole = "build_log"
	RoleBuildMeta    ArtifactRole = "build_meta"
	RoleSystemMap    ArtifactRole = "system_map"
	RoleKernelImage  ArtifactRole = "kernel_image"
	RoleZImage       ArtifactRole = "zimage"
	RoleVmlinux      ArtifactRole = "vmlinux"
	RoleModules      ArtifactRole = "modules"
)

// knownFiles maps exact, case-sensitive filenames to the role they fulfil.
var knownFiles = map[string]ArtifactRole{
	"kernel.config":  RoleKernelConfig,
	"build.log":      RoleBuildLog,
	"build.json":     RoleBuildMeta,
	"System.map":     RoleSystemMap,
	"Image":          RoleKernelImage,
	"zImage":         RoleZImage,
	"vmlinux":        RoleVmlinux,
	"modules.tar.xz": RoleModules,
}

// RoleForFile returns the artifact role for filename, if it is a known file.
func RoleForFile(filename string) (ArtifactRole, bool) {
	role, ok := knownFiles[filename]
	return role, ok
}

// KnownFiles returns a copy of the filename to role registry.
func KnownFiles() map[string]ArtifactRole {
	out := make(map[string]ArtifactRole, len(knownFiles))
	for name, role := range knownFiles {
		out[name] = role
	}
	return out
}
