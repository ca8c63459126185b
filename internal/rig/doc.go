// Package rig turns YAML robot descriptions into a skeleton and its meshes.
//
// A description names a chassis and a list of parts. Each part hangs off
// the chassis or an earlier part through a joint, may carry a driver, and
// has a primitive shape whose volume and density give the body mass.
// Geometry is produced by a [Mesher]; [SDFMesher] tessellates the shapes
// with deadsy/sdfx.
package rig
