// Package geom implements the plane algebra and rigid/projective transform
// propagation underlying the room editor. Planes are kept in Hessian normal
// form (unit normal n, offset d, with n·p = d on the plane). Vectors and
// 4x4 transforms come from the sdfx math types; all arithmetic is performed
// at double precision.
package geom
