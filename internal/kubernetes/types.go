package kubernetes

import (
	"fmt"
	"maps"
	"strings"

	batchv1 "k8s.io/api/batch/v1"
	corev1 "k8s.io/api/core/v1"
	"k8s.io/apimachinery/pkg/api/resource"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/utils/ptr"

	"github.com/stacklok/connector-lifecycle-server/internal/batch"
)

func tagAnnotations(tags map[string]string) map[string]string {
	annotations := make(map[string]string, len(tags))
	for k, v := range tags {
		annotations[tagAnnotationPrefix+k] = v
	}
	return annotations
}

// tagsFromAnnotations returns the tags recorded on an object
func tagsFromAnnotations(annotations map[string]string) map[string]string {
	tags := map[string]string{}
	for k, v := range annotations {
		if key, ok := strings.CutPrefix(k, tagAnnotationPrefix); ok {
			tags[key] = v
		}
	}
	return tags
}

func objectLabels(tags map[string]string) map[string]string {
	labels := map[string]string{LabelManaged: "true"}
	if id, err := ObjectName(tags[batch.TagJobID]); err == nil {
		labels[LabelJobID] = id
	}
	return labels
}

// buildPodTemplate converts a definition into the PodTemplate stored for it
func buildPodTemplate(def batch.Definition, namespace, serviceAccount string) (*corev1.PodTemplate, error) {
	name, err := ObjectName(def.Name)
	if err != nil {
		return nil, err
	}
	if def.Image == "" {
		return nil, fmt.Errorf("definition %s has no image", def.Name)
	}

	env := make([]corev1.EnvVar, 0, len(def.Environment))
	for _, e := range def.Environment {
		env = append(env, corev1.EnvVar{Name: e.Name, Value: e.Value})
	}

	resources := corev1.ResourceList{}
	if def.CPU > 0 {
		resources[corev1.ResourceCPU] = *resource.NewMilliQuantity(int64(def.CPU*1000), resource.DecimalSI)
	}
	if def.MemoryMiB > 0 {
		resources[corev1.ResourceMemory] = *resource.NewQuantity(int64(def.MemoryMiB)*1024*1024, resource.BinarySI)
	}

	annotations := tagAnnotations(def.Tags)
	if def.ExecutionRoleARN != "" {
		annotations[AnnotationExecutionRole] = def.ExecutionRoleARN
	}
	if def.JobRoleARN != "" {
		annotations[AnnotationJobRole] = def.JobRoleARN
	}

	return &corev1.PodTemplate{
		ObjectMeta: metav1.ObjectMeta{
			Name:        name,
			Namespace:   namespace,
			Labels:      objectLabels(def.Tags),
			Annotations: annotations,
		},
		Template: corev1.PodTemplateSpec{
			ObjectMeta: metav1.ObjectMeta{
				Labels: objectLabels(def.Tags),
			},
			Spec: corev1.PodSpec{
				RestartPolicy:      corev1.RestartPolicyNever,
				ServiceAccountName: serviceAccount,
				Containers: []corev1.Container{{
					Name:  containerName,
					Image: def.Image,
					Env:   env,
					Resources: corev1.ResourceRequirements{
						Requests: resources,
						Limits:   resources,
					},
				}},
			},
		},
	}, nil
}

// buildJob converts a submission of template into a Job
func buildJob(template *corev1.PodTemplate, sub batch.Submission, namespace string) (*batchv1.Job, error) {
	name, err := ObjectName(sub.Name)
	if err != nil {
		return nil, err
	}

	spec := *template.Template.DeepCopy()
	spec.Labels = maps.Clone(spec.Labels)
	if spec.Labels == nil {
		spec.Labels = map[string]string{}
	}
	maps.Copy(spec.Labels, objectLabels(sub.Tags))

	job := &batchv1.Job{
		ObjectMeta: metav1.ObjectMeta{
			Name:        name,
			Namespace:   namespace,
			Labels:      objectLabels(sub.Tags),
			Annotations: tagAnnotations(sub.Tags),
			Finalizers:  []string{FinalizerCompletion},
		},
		Spec: batchv1.JobSpec{
			BackoffLimit: ptr.To[int32](0),
			Template:     spec,
		},
	}
	if sub.Timeout > 0 {
		job.Spec.ActiveDeadlineSeconds = ptr.To(int64(sub.Timeout.Seconds()))
	}
	return job, nil
}

// jobOutcome reports the terminal outcome of a Job, if it has one
func jobOutcome(job *batchv1.Job) (batch.Outcome, string, bool) {
	for _, cond := range job.Status.Conditions {
		if cond.Status != corev1.ConditionTrue {
			continue
		}
		switch cond.Type {
		case batchv1.JobComplete:
			return batch.OutcomeSucceeded, cond.Message, true
		case batchv1.JobFailed:
			return batch.OutcomeFailed, cond.Reason, true
		}
	}
	return "", "", false
}
